package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_TypedWrappers(t *testing.T) {
	assert.True(t, IsErrorType(NewGenerationFailed("model-a", fmt.Errorf("boom")), ErrorTypeGeneration))
	assert.True(t, IsErrorType(NewGraphQueryFailed("MATCH (n)", fmt.Errorf("down")), ErrorTypeGraph))
	assert.True(t, IsErrorType(NewGraphUnavailable("bolt://localhost", fmt.Errorf("refused")), ErrorTypeGraph))
	assert.True(t, IsErrorType(NewExtractionInvalid("not json", fmt.Errorf("parse")), ErrorTypeExtraction))
	assert.True(t, IsErrorType(NewNodeNotFound("node-1"), ErrorTypeNotFound))
	assert.True(t, IsErrorType(NewEdgeEndpointMissing("a", "b"), ErrorTypeNotFound))

	assert.False(t, IsErrorType(NewGenerationFailed("model-a", nil), ErrorTypeGraph))
	assert.False(t, IsErrorType(fmt.Errorf("plain"), ErrorTypeGraph))
	assert.False(t, IsErrorType(nil, ErrorTypeGraph))
}

func TestIsErrorType_BareBaseError(t *testing.T) {
	assert.True(t, IsErrorType(ErrGenerationEmpty, ErrorTypeGeneration))
}

func TestIsErrorType_ForeignWrapping(t *testing.T) {
	err := fmt.Errorf("persist turn: %w", NewGraphQueryFailed("MERGE (n)", fmt.Errorf("down")))
	assert.True(t, IsErrorType(err, ErrorTypeGraph))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewGraphQueryFailed("MERGE (n)", fmt.Errorf("down"))))
	assert.True(t, IsRetryable(NewGraphUnavailable("bolt://localhost", fmt.Errorf("refused"))))
	assert.False(t, IsRetryable(NewGenerationFailed("model-a", fmt.Errorf("boom"))))
	assert.False(t, IsRetryable(NewNodeNotFound("node-1")))
	assert.False(t, IsRetryable(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNodeNotFound("node-1")))
	assert.True(t, IsNotFound(NewEdgeEndpointMissing("a", "b")))
	assert.False(t, IsNotFound(NewGraphQueryFailed("MATCH (n)", fmt.Errorf("down"))))
	assert.False(t, IsNotFound(nil))
}
