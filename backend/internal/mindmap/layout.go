package mindmap

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"deepstudy/backend/internal/extractor"
)

const (
	rootLabel = "知识中心"

	maxCoreConcepts = 3
	levelOffset     = 150.0 // vertical distance per layer
	siblingOffset   = 100.0 // horizontal distance between siblings

	collisionThreshold = 80.0
	collisionStep      = 20.0
)

var corePositions = [maxCoreConcepts]Position{
	{X: 200, Y: 250},
	{X: 400, Y: 250},
	{X: 600, Y: 250},
}

// builder accumulates nodes and edges with deterministic sequential ids so
// that the same ordered input always yields an identical graph.
type builder struct {
	nodes     []Node
	edges     []Edge
	idByLabel map[string]string
	nodeSeq   int
	edgeSeq   int
}

func newBuilder() *builder {
	return &builder{idByLabel: make(map[string]string)}
}

// addNode creates a node for label unless one already exists anywhere in
// the graph, in which case the existing node id is reused.
func (b *builder) addNode(label, nodeType string, pos Position, style map[string]interface{}) string {
	if id, ok := b.idByLabel[label]; ok {
		return id
	}
	b.nodeSeq++
	id := fmt.Sprintf("node_%d", b.nodeSeq)
	b.idByLabel[label] = id
	b.nodes = append(b.nodes, Node{
		ID:       id,
		Data:     NodeData{Label: label, Type: nodeType},
		Position: pos,
		Style:    style,
	})
	return id
}

func (b *builder) addEdge(source, target, label string, style map[string]interface{}) {
	b.edgeSeq++
	b.edges = append(b.edges, Edge{
		ID:     fmt.Sprintf("edge_%d", b.edgeSeq),
		Source: source,
		Target: target,
		Label:  label,
		Style:  style,
	})
}

// Layout converts an ordered triple sequence into a renderable mind-map:
// a fixed root, up to three frequency-selected core concepts, and one leaf
// per distinct triple object, followed by a single collision-resolution
// pass. Deterministic for the same ordered input.
func Layout(triples []extractor.Triple) Graph {
	if len(triples) == 0 {
		return defaultGraph()
	}

	b := newBuilder()
	rootID := b.addNode(rootLabel, "center", Position{X: 400, Y: 100}, centerStyle())

	cores := coreConcepts(triples)
	coreIDs := make(map[string]string, len(cores))
	for i, core := range cores {
		id := b.addNode(core, "core", corePositions[i], coreStyle())
		coreIDs[core] = id
		b.addEdge(rootID, id, "", trunkEdgeStyle())
	}

	assigned := partitionTriples(triples, cores)

	for i, core := range cores {
		related := assigned[core]
		coreID := coreIDs[core]
		basePos := corePositions[i]

		for idx, t := range related {
			pos := Position{
				X: basePos.X + (float64(idx)-float64(len(related))/2)*siblingOffset,
				Y: basePos.Y + levelOffset,
			}
			leafID := b.addNode(t.Object, "concept", pos, conceptStyle())
			b.addEdge(coreID, leafID, t.Relation, branchEdgeStyle())
		}
	}

	resolveCollisions(b.nodes)
	return Graph{Nodes: b.nodes, Edges: b.edges}
}

// coreConcepts selects up to three highest-frequency subjects, breaking
// ties by first-seen order.
func coreConcepts(triples []extractor.Triple) []string {
	freq := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for i, t := range triples {
		if _, ok := freq[t.Subject]; !ok {
			firstSeen[t.Subject] = i
			order = append(order, t.Subject)
		}
		freq[t.Subject]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if freq[order[a]] != freq[order[b]] {
			return freq[order[a]] > freq[order[b]]
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})

	if len(order) > maxCoreConcepts {
		order = order[:maxCoreConcepts]
	}
	return order
}

// partitionTriples assigns every triple to its most relevant core concept:
// score 2 for an exact subject/object match, 1 for a substring match,
// 0 means the triple is dropped from layout. Ties go to the earlier core.
func partitionTriples(triples []extractor.Triple, cores []string) map[string][]extractor.Triple {
	assigned := make(map[string][]extractor.Triple, len(cores))
	for _, t := range triples {
		best := ""
		bestScore := 0
		for _, core := range cores {
			score := 0
			switch {
			case t.Subject == core || t.Object == core:
				score = 2
			case strings.Contains(t.Subject, core) || strings.Contains(t.Object, core):
				score = 1
			}
			if score > bestScore {
				bestScore = score
				best = core
			}
		}
		if best != "" {
			assigned[best] = append(assigned[best], t)
		}
	}
	return assigned
}

// resolveCollisions runs a single pairwise repulsion pass: any node closer
// than the threshold to an earlier node is nudged away along the
// normalized separating vector. Residual overlaps after one pass are
// accepted.
func resolveCollisions(nodes []Node) {
	for i := range nodes {
		for j := range nodes {
			if i == j {
				continue
			}
			dx := nodes[j].Position.X - nodes[i].Position.X
			dy := nodes[j].Position.Y - nodes[i].Position.Y
			dist := math.Hypot(dx, dy)
			if dist >= collisionThreshold {
				continue
			}
			if dx == 0 {
				dx = 1
			}
			if dy == 0 {
				dy = 1
			}
			length := math.Hypot(dx, dy)
			nodes[j].Position.X += dx / length * collisionStep
			nodes[j].Position.Y += dy / length * collisionStep
		}
	}
}

// defaultGraph is the fixed illustrative fallback so the UI always has
// something to render.
func defaultGraph() Graph {
	b := newBuilder()
	rootID := b.addNode(rootLabel, "center", Position{X: 400, Y: 200}, centerStyle())
	conceptID := b.addNode("概念", "concept", Position{X: 200, Y: 100}, conceptStyle())
	applicationID := b.addNode("应用", "application", Position{X: 600, Y: 100}, conceptStyle())
	exampleID := b.addNode("例子", "example", Position{X: 400, Y: 350}, conceptStyle())

	b.addEdge(rootID, conceptID, "包含", trunkEdgeStyle())
	b.addEdge(rootID, applicationID, "应用于", trunkEdgeStyle())
	b.addEdge(rootID, exampleID, "示例", trunkEdgeStyle())

	return Graph{Nodes: b.nodes, Edges: b.edges}
}
