package mindmap

// Position is a 2-D canvas coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries the displayable payload of a node
type NodeData struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Node is a positioned, styled render node in ReactFlow shape
type Node struct {
	ID       string                 `json:"id"`
	Data     NodeData               `json:"data"`
	Position Position               `json:"position"`
	Style    map[string]interface{} `json:"style,omitempty"`
}

// Edge is a labeled connection between two render nodes
type Edge struct {
	ID     string                 `json:"id"`
	Source string                 `json:"source"`
	Target string                 `json:"target"`
	Label  string                 `json:"label,omitempty"`
	Style  map[string]interface{} `json:"style,omitempty"`
}

// Graph is the rendering output consumed directly by the UI. It is built
// fresh on every layout call and never persisted.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node styles, matching the UI palette
func centerStyle() map[string]interface{} {
	return map[string]interface{}{
		"background":   "#007bff",
		"color":        "white",
		"borderRadius": "8px",
		"padding":      "12px",
		"fontWeight":   "bold",
	}
}

func coreStyle() map[string]interface{} {
	return map[string]interface{}{
		"background":   "#e3f2fd",
		"border":       "2px solid #2196f3",
		"borderRadius": "8px",
		"padding":      "10px",
		"fontWeight":   "600",
	}
}

func conceptStyle() map[string]interface{} {
	return map[string]interface{}{
		"background":   "#fff3e0",
		"border":       "2px solid #ff9800",
		"borderRadius": "8px",
		"padding":      "8px",
	}
}

func trunkEdgeStyle() map[string]interface{} {
	return map[string]interface{}{
		"stroke":      "#007bff",
		"strokeWidth": 2,
	}
}

func branchEdgeStyle() map[string]interface{} {
	return map[string]interface{}{
		"stroke":      "#6c757d",
		"strokeWidth": 2,
	}
}
