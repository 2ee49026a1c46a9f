package agent

import (
	"context"

	"deepstudy/backend/pkg/logger"
	"go.uber.org/zap"
)

// IntentType classifies a user query
type IntentType string

const (
	IntentDerivation IntentType = "derivation"
	IntentCode       IntentType = "code"
	IntentConcept    IntentType = "concept"
)

// fewShotExamples seeds the eventual LLM-backed classifier
const fewShotExamples = `
示例1:
问题: "为什么矩阵的特征值等于其行列式的值？"
意图: derivation

示例2:
问题: "用 Python 实现快速排序"
意图: code

示例3:
问题: "什么是 Schur 分解？"
意图: concept
`

// IntentRouter selects a generation strategy for a query. The current
// implementation always routes to the concept strategy; the few-shot
// examples are kept for the LLM-backed classifier.
// TODO: classify with llm.Complete over fewShotExamples once routing
// accuracy is worth the extra round trip.
type IntentRouter struct {
	llm    Generator
	logger *zap.Logger
}

// NewIntentRouter creates an intent router
func NewIntentRouter(llm Generator) *IntentRouter {
	return &IntentRouter{
		llm:    llm,
		logger: logger.Get(),
	}
}

// Route classifies the query into an intent
func (r *IntentRouter) Route(ctx context.Context, query string) IntentType {
	r.logger.Debug("Routing query intent", zap.Int("query_length", len(query)))
	return IntentConcept
}
