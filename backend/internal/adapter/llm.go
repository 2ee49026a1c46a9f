package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	apperrors "deepstudy/backend/pkg/errors"
	"deepstudy/backend/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// LLMAdapter handles communication with an OpenAI-compatible generation
// endpoint (ModelScope in production)
type LLMAdapter struct {
	client    *openai.Client
	model     string
	maxTokens int
	mu        sync.RWMutex // Protects model field for concurrent access
	logger    *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter
func NewLLMAdapter(baseURL, apiKey, modelID string, maxTokens int) *LLMAdapter {
	// A dummy key keeps local OpenAI-compatible endpoints happy
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &LLMAdapter{
		client:    openai.NewClientWithConfig(config),
		model:     modelID,
		maxTokens: maxTokens,
		logger:    logger.Named("adapter"),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Complete sends a blocking generation request and returns the full answer
// text. Transient failures are retried with linear backoff.
func (a *LLMAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   a.maxTokens,
	}

	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewGenerationFailed(currentModel, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)
	}

	if err != nil {
		return "", apperrors.NewGenerationFailed(currentModel, fmt.Errorf("after %d attempts: %w", maxRetries, err))
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.ErrGenerationEmpty
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM completion generated",
		zap.String("model", currentModel),
		zap.Int("length", len(content)),
	)
	return content, nil
}

// Stream opens a single streaming generation call and invokes onDelta for
// every text delta in generation order. Any mid-stream failure aborts the
// call; streaming requests are not retried because the caller may already
// have forwarded part of the answer.
func (a *LLMAdapter) Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error {
	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   a.maxTokens,
		Stream:      true,
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return apperrors.NewGenerationFailed(currentModel, err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperrors.NewGenerationFailed(currentModel, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}
