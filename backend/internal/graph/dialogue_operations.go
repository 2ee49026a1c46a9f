package graph

import (
	"context"
	"fmt"
	"time"

	"deepstudy/backend/pkg/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Dialogue Node Operations
// ============================================================================

// UpsertDialogueNode saves a dialogue node with merge-by-node_id semantics:
// created if absent, otherwise all supplied fields are overwritten.
// Last-writer-wins; the node is never duplicated.
func (r *Repository) UpsertDialogueNode(ctx context.Context, node DialogueNode) error {
	if node.Timestamp.IsZero() {
		node.Timestamp = time.Now().UTC()
	}
	if node.Title == "" {
		node.Title = DefaultTitle(node.Content)
	}
	if node.Type == "" {
		node.Type = NodeTypeDefault
	}

	query := `
		MERGE (n:DialogueNode {node_id: $node_id})
		SET n.user_id = $user_id,
		    n.role = $role,
		    n.content = $content,
		    n.title = $title,
		    n.type = $type,
		    n.intent = $intent,
		    n.mastery_score = $mastery_score,
		    n.timestamp = datetime($timestamp)
	`

	err := r.write(ctx, query, map[string]interface{}{
		"node_id":       node.NodeID,
		"user_id":       node.UserID,
		"role":          string(node.Role),
		"content":       node.Content,
		"title":         node.Title,
		"type":          string(node.Type),
		"intent":        node.Intent,
		"mastery_score": node.MasteryScore,
		"timestamp":     node.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Dialogue node upserted",
		zap.String("node_id", node.NodeID),
		zap.String("type", string(node.Type)),
	)
	return nil
}

// LinkNodes creates a typed edge between two existing dialogue nodes with
// merge-by-endpoint-pair-and-type semantics: repeated linking of the same
// pair updates attributes instead of duplicating the edge. Linking fails
// when either endpoint does not exist.
func (r *Repository) LinkNodes(ctx context.Context, parentID, childID string, relType EdgeType, attrs map[string]interface{}) error {
	if !relType.Valid() {
		return errors.NewGraphQueryFailed(string(relType), fmt.Errorf("unknown edge type %q", relType))
	}
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	// Relationship types cannot be parametrized in Cypher; relType is
	// validated against the enum above.
	query := fmt.Sprintf(`
		MATCH (parent:DialogueNode {node_id: $parent_id})
		MATCH (child:DialogueNode {node_id: $child_id})
		MERGE (parent)-[r:%s]->(child)
		SET r += $attrs
		RETURN type(r) as rel_type
	`, relType)

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"parent_id": parentID,
		"child_id":  childID,
		"attrs":     attrs,
	})
	if err != nil {
		return errors.NewGraphQueryFailed(query, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return errors.NewGraphQueryFailed(query, err)
		}
		return errors.NewEdgeEndpointMissing(parentID, childID)
	}

	return nil
}

// GetDialogueNode fetches a single dialogue node by id
func (r *Repository) GetDialogueNode(ctx context.Context, nodeID string) (*DialogueNode, error) {
	records, err := r.Query(ctx,
		`MATCH (n:DialogueNode {node_id: $node_id})
		 RETURN n.node_id as node_id, n.user_id as user_id, n.role as role,
		        n.content as content, n.title as title, n.type as type,
		        n.intent as intent, n.mastery_score as mastery_score,
		        n.timestamp as timestamp`,
		map[string]interface{}{"node_id": nodeID},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewNodeNotFound(nodeID)
	}

	node := nodeFromRecord(records[0])
	return &node, nil
}

// GetDialogueTree returns the root node matching (root_id, user_id) plus
// its HAS_CHILD descendants, ordered by ascending timestamp at each level
// and truncated at maxDepth levels of children.
func (r *Repository) GetDialogueTree(ctx context.Context, rootID, userID string, maxDepth int) (*DialogueTree, error) {
	if maxDepth < 1 {
		maxDepth = 10
	}

	records, err := r.Query(ctx,
		`MATCH (n:DialogueNode {node_id: $node_id, user_id: $user_id})
		 RETURN n.node_id as node_id, n.user_id as user_id, n.role as role,
		        n.content as content, n.title as title, n.type as type,
		        n.intent as intent, n.mastery_score as mastery_score,
		        n.timestamp as timestamp`,
		map[string]interface{}{"node_id": rootID, "user_id": userID},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewNodeNotFound(rootID)
	}

	root := &DialogueTree{DialogueNode: nodeFromRecord(records[0])}
	if err := r.fillChildren(ctx, root, 0, maxDepth); err != nil {
		return nil, err
	}
	return root, nil
}

// fillChildren recursively loads HAS_CHILD descendants up to maxDepth
func (r *Repository) fillChildren(ctx context.Context, parent *DialogueTree, depth, maxDepth int) error {
	if depth >= maxDepth {
		parent.Children = []*DialogueTree{}
		return nil
	}

	records, err := r.Query(ctx,
		`MATCH (parent:DialogueNode {node_id: $parent_id})-[:HAS_CHILD]->(child:DialogueNode)
		 RETURN child.node_id as node_id, child.user_id as user_id, child.role as role,
		        child.content as content, child.title as title, child.type as type,
		        child.intent as intent, child.mastery_score as mastery_score,
		        child.timestamp as timestamp
		 ORDER BY child.timestamp`,
		map[string]interface{}{"parent_id": parent.NodeID},
	)
	if err != nil {
		return err
	}

	parent.Children = make([]*DialogueTree, 0, len(records))
	for _, record := range records {
		child := &DialogueTree{DialogueNode: nodeFromRecord(record)}
		if err := r.fillChildren(ctx, child, depth+1, maxDepth); err != nil {
			return err
		}
		parent.Children = append(parent.Children, child)
	}
	return nil
}

// GetMindMapRows returns the flattened parent->child tuples of one
// conversation's persisted subgraph, anchored at the explanation node,
// for direct mind-map construction. Built on the generic Query
// passthrough.
func (r *Repository) GetMindMapRows(ctx context.Context, conversationID string) ([]MindMapRow, error) {
	records, err := r.Query(ctx,
		`MATCH (root:DialogueNode {node_id: $cid})-[rel:HAS_CHILD|HAS_KEYWORD]->(child:DialogueNode)
		 RETURN root.node_id as source_id, root.title as source_title,
		        root.content as source_content, root.type as source_type,
		        child.node_id as target_id, child.title as target_title,
		        child.content as target_content, child.type as target_type,
		        elementId(rel) as rel_id, type(rel) as rel_type
		 ORDER BY child.timestamp`,
		map[string]interface{}{"cid": conversationID},
	)
	if err != nil {
		return nil, err
	}

	rows := make([]MindMapRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, MindMapRow{
			SourceID:      getStringFromRecord(record, "source_id"),
			SourceTitle:   getStringFromRecord(record, "source_title"),
			SourceContent: getStringFromRecord(record, "source_content"),
			SourceType:    getStringFromRecord(record, "source_type"),
			TargetID:      getStringFromRecord(record, "target_id"),
			TargetTitle:   getStringFromRecord(record, "target_title"),
			TargetContent: getStringFromRecord(record, "target_content"),
			TargetType:    getStringFromRecord(record, "target_type"),
			RelID:         getStringFromRecord(record, "rel_id"),
			RelType:       getStringFromRecord(record, "rel_type"),
		})
	}
	return rows, nil
}

// nodeFromRecord rebuilds a DialogueNode from a query record
func nodeFromRecord(record *neo4j.Record) DialogueNode {
	return DialogueNode{
		NodeID:       getStringFromRecord(record, "node_id"),
		UserID:       getStringFromRecord(record, "user_id"),
		Role:         Role(getStringFromRecord(record, "role")),
		Content:      getStringFromRecord(record, "content"),
		Title:        getStringFromRecord(record, "title"),
		Type:         NodeType(getStringFromRecord(record, "type")),
		Intent:       getStringFromRecord(record, "intent"),
		MasteryScore: getFloat64FromRecord(record, "mastery_score"),
		Timestamp:    getTimeFromRecord(record, "timestamp"),
	}
}
