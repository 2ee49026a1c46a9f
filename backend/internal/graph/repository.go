package graph

import (
	"context"

	"deepstudy/backend/pkg/errors"
	"deepstudy/backend/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Repository handles all Neo4j database operations for the dialogue graph
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// Query is the generic parametrized passthrough for graph operations the
// typed API does not cover, e.g. ad-hoc traversal for rendering. Records
// are fully collected before the session closes.
func (r *Repository) Query(ctx context.Context, cypher string, params map[string]interface{}) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, errors.NewGraphQueryFailed(cypher, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, errors.NewGraphQueryFailed(cypher, err)
	}
	return records, nil
}

// write runs a single write query and reports failures as graph errors
func (r *Repository) write(ctx context.Context, cypher string, params map[string]interface{}) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return errors.NewGraphQueryFailed(cypher, err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return errors.NewGraphQueryFailed(cypher, err)
	}
	return nil
}
