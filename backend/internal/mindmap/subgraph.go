package mindmap

import (
	"unicode/utf8"

	"deepstudy/backend/internal/graph"
)

const subgraphLabelRunes = 15

// FromSubgraph builds a renderable mind-map from the flattened rows of a
// persisted conversation subgraph. Node and edge ids come from the store,
// so the output is stable across calls for unchanged data.
func FromSubgraph(rows []graph.MindMapRow) Graph {
	if len(rows) == 0 {
		return defaultGraph()
	}

	var nodes []Node
	var edges []Edge
	seen := make(map[string]int) // node id -> index in nodes

	addNode := func(id, title, content, nodeType, fallbackType string, pos Position, style map[string]interface{}) {
		if _, ok := seen[id]; ok {
			return
		}
		if nodeType == "" {
			nodeType = fallbackType
		}
		seen[id] = len(nodes)
		nodes = append(nodes, Node{
			ID:       id,
			Data:     NodeData{Label: subgraphLabel(title, content, fallbackType), Type: nodeType},
			Position: pos,
			Style:    style,
		})
	}

	// The source of every row is the conversation root; lay children out
	// in a layer beneath it.
	rootPos := Position{X: 400, Y: 100}
	childIdx := 0
	for _, row := range rows {
		addNode(row.SourceID, row.SourceTitle, row.SourceContent, row.SourceType, "root", rootPos, centerStyle())

		childPos := Position{
			X: rootPos.X + (float64(childIdx)-float64(len(rows))/2)*siblingOffset,
			Y: rootPos.Y + levelOffset,
		}
		before := len(nodes)
		addNode(row.TargetID, row.TargetTitle, row.TargetContent, row.TargetType, "keyword", childPos, conceptStyle())
		if len(nodes) > before {
			childIdx++
		}

		edges = append(edges, Edge{
			ID:     row.RelID,
			Source: row.SourceID,
			Target: row.TargetID,
			Label:  row.RelType,
			Style:  branchEdgeStyle(),
		})
	}

	resolveCollisions(nodes)
	return Graph{Nodes: nodes, Edges: edges}
}

// subgraphLabel prefers the stored title, then truncated content, then a
// role placeholder.
func subgraphLabel(title, content, fallbackType string) string {
	if title != "" {
		return title
	}
	if content != "" {
		if utf8.RuneCountInString(content) > subgraphLabelRunes {
			return string([]rune(content)[:subgraphLabelRunes]) + "..."
		}
		return content
	}
	if fallbackType == "root" {
		return "核心概念"
	}
	return "子节点"
}
