package mindmap

import (
	"math"
	"testing"

	"deepstudy/backend/internal/extractor"
	"deepstudy/backend/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triple(s, r, o string) extractor.Triple {
	return extractor.Triple{Subject: s, Relation: r, Object: o}
}

func nodeByLabel(g Graph, label string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Data.Label == label {
			return n, true
		}
	}
	return Node{}, false
}

func TestLayout_EmptyInputYieldsDefaultGraph(t *testing.T) {
	g := Layout(nil)

	require.Len(t, g.Nodes, 4)
	require.Len(t, g.Edges, 3)

	root, ok := nodeByLabel(g, "知识中心")
	require.True(t, ok)
	assert.Equal(t, "center", root.Data.Type)

	labels := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		labels = append(labels, n.Data.Label)
	}
	assert.ElementsMatch(t, []string{"知识中心", "概念", "应用", "例子"}, labels)

	edgeLabels := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		edgeLabels = append(edgeLabels, e.Label)
		assert.Equal(t, root.ID, e.Source)
	}
	assert.ElementsMatch(t, []string{"包含", "应用于", "示例"}, edgeLabels)
}

func TestLayout_RootAndCorePlacement(t *testing.T) {
	triples := []extractor.Triple{
		triple("机器学习", "是", "人工智能的分支"),
		triple("机器学习", "包括", "监督学习"),
		triple("深度学习", "属于", "机器学习"),
	}
	g := Layout(triples)

	root, ok := nodeByLabel(g, "知识中心")
	require.True(t, ok)
	assert.Equal(t, Position{X: 400, Y: 100}, root.Position)

	// 机器学习 has frequency 2 and takes the first core slot
	core, ok := nodeByLabel(g, "机器学习")
	require.True(t, ok)
	assert.Equal(t, "core", core.Data.Type)
	assert.Equal(t, Position{X: 200, Y: 250}, core.Position)

	// the root links to every core with an unlabeled trunk edge
	trunks := 0
	for _, e := range g.Edges {
		if e.Source == root.ID {
			trunks++
			assert.Empty(t, e.Label)
		}
	}
	assert.Equal(t, 2, trunks)
}

func TestLayout_CoreSelectionFrequencyAndTies(t *testing.T) {
	triples := []extractor.Triple{
		triple("乙", "有", "性质一"),
		triple("甲", "有", "性质二"),
		triple("甲", "有", "性质三"),
		triple("丙", "有", "性质四"),
		triple("丁", "有", "性质五"),
	}
	cores := coreConcepts(triples)

	// 甲 wins by frequency; 乙 beats 丙 and 丙 beats 丁 by first appearance
	assert.Equal(t, []string{"甲", "乙", "丙"}, cores)
}

func TestLayout_LeafRelevanceScoring(t *testing.T) {
	triples := []extractor.Triple{
		triple("机器学习", "包括", "监督学习"),
		triple("深度学习", "属于", "机器学习"),     // exact object match, score 2
		triple("机器学习的应用", "包括", "图像识别"), // substring subject match, score 1
		triple("烹饪", "包括", "切配"),         // unrelated, dropped
	}
	cores := []string{"机器学习"}
	assigned := partitionTriples(triples, cores)

	require.Len(t, assigned["机器学习"], 3)
	g := Layout(triples)
	_, ok := nodeByLabel(g, "切配")
	assert.False(t, ok, "irrelevant triples are dropped from layout")
}

func TestLayout_Deterministic(t *testing.T) {
	triples := []extractor.Triple{
		triple("水", "是", "无色液体"),
		triple("水", "由", "氢和氧组成"),
		triple("冰", "是", "水的固态"),
	}

	first := Layout(triples)
	second := Layout(triples)
	assert.Equal(t, first, second)

	// sequential ids, no randomness
	assert.Equal(t, "node_1", first.Nodes[0].ID)
	assert.Equal(t, "edge_1", first.Edges[0].ID)
}

func TestLayout_DuplicateLabelReusesNode(t *testing.T) {
	triples := []extractor.Triple{
		triple("水", "是", "液体"),
		triple("酒精", "是", "液体"),
		triple("酒精", "有", "挥发性"),
	}
	g := Layout(triples)

	count := 0
	for _, n := range g.Nodes {
		if n.Data.Label == "液体" {
			count++
		}
	}
	assert.Equal(t, 1, count, "identical labels share one node")
}

func TestResolveCollisions_SeparatesClosePairs(t *testing.T) {
	nodes := []Node{
		{ID: "a", Position: Position{X: 100, Y: 100}},
		{ID: "b", Position: Position{X: 110, Y: 100}},
		{ID: "c", Position: Position{X: 500, Y: 500}},
	}
	before := nodes[1].Position

	resolveCollisions(nodes)

	// b moved away from a along the separating direction
	assert.Greater(t, nodes[1].Position.X, before.X)
	// the far node is untouched
	assert.Equal(t, Position{X: 500, Y: 500}, nodes[2].Position)
}

func TestResolveCollisions_CoincidentNodes(t *testing.T) {
	nodes := []Node{
		{ID: "a", Position: Position{X: 100, Y: 100}},
		{ID: "b", Position: Position{X: 100, Y: 100}},
	}
	resolveCollisions(nodes)

	dx := nodes[1].Position.X - nodes[0].Position.X
	dy := nodes[1].Position.Y - nodes[0].Position.Y
	assert.Greater(t, math.Hypot(dx, dy), 0.0, "coincident nodes must separate")
}

func TestFromSubgraph_EmptyYieldsDefaultGraph(t *testing.T) {
	g := FromSubgraph(nil)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
}

func TestFromSubgraph_UsesStoreIDs(t *testing.T) {
	rows := []graph.MindMapRow{
		{
			SourceID: "conv-1", SourceTitle: "水的化学式", SourceType: "explanation",
			TargetID: "conv-1_kw_0", TargetTitle: "H2O", TargetType: "keyword",
			RelID: "rel-1", RelType: "HAS_KEYWORD",
		},
		{
			SourceID: "conv-1", SourceTitle: "水的化学式", SourceType: "explanation",
			TargetID: "conv-2_user", TargetContent: "为什么水是极性分子", TargetType: "root",
			RelID: "rel-2", RelType: "HAS_CHILD",
		},
	}
	g := FromSubgraph(rows)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, "conv-1", g.Nodes[0].ID)
	assert.Equal(t, "水的化学式", g.Nodes[0].Data.Label)
	assert.Equal(t, Position{X: 400, Y: 100}, g.Nodes[0].Position)

	assert.Equal(t, "rel-1", g.Edges[0].ID)
	assert.Equal(t, "HAS_KEYWORD", g.Edges[0].Label)
	assert.Equal(t, "conv-1", g.Edges[0].Source)
	assert.Equal(t, "conv-1_kw_0", g.Edges[0].Target)

	// children sit in the layer below the root
	for _, n := range g.Nodes[1:] {
		assert.Equal(t, 250.0, n.Position.Y)
	}
}

func TestFromSubgraph_LabelFallbacks(t *testing.T) {
	assert.Equal(t, "标题", subgraphLabel("标题", "内容", "root"))
	assert.Equal(t, "短内容", subgraphLabel("", "短内容", "keyword"))

	long := "这是一段超过十五个字符的很长很长的内容文本"
	got := subgraphLabel("", long, "keyword")
	assert.Equal(t, string([]rune(long)[:15])+"...", got)

	assert.Equal(t, "核心概念", subgraphLabel("", "", "root"))
	assert.Equal(t, "子节点", subgraphLabel("", "", "keyword"))
}
