package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deepstudy/backend/internal/extractor"
	"deepstudy/backend/internal/graph"
	"deepstudy/backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// keywordWriteConcurrency bounds the keyword persistence fan-out
const keywordWriteConcurrency = 4

// Orchestrator drives one query through routing, streaming generation,
// knowledge extraction and graph persistence.
type Orchestrator struct {
	store      GraphStore
	llm        Generator
	extractor  *extractor.Extractor
	router     *IntentRouter
	strategies map[IntentType]*Strategy

	// useLLMExtraction switches extraction to the LLM-assisted path,
	// which falls back to rules on any failure
	useLLMExtraction bool

	logger *zap.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLLMExtraction enables LLM-assisted triple extraction
func WithLLMExtraction() Option {
	return func(o *Orchestrator) { o.useLLMExtraction = true }
}

// NewOrchestrator creates a conversation orchestrator. The coder generator
// serves code-intent queries; the main generator serves everything else.
func NewOrchestrator(store GraphStore, llm, coder Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		llm:       llm,
		extractor: extractor.New(),
		router:    NewIntentRouter(llm),
		strategies: map[IntentType]*Strategy{
			IntentConcept:    NewConceptStrategy(llm),
			IntentCode:       NewCodeStrategy(coder),
			IntentDerivation: NewDerivationStrategy(llm),
		},
		logger: logger.Named("agent"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessQueryStream answers a query over a streaming transport. Deltas
// are forwarded to emit in generation order while being buffered; on
// stream completion the buffered answer is extracted and persisted
// best-effort. An upstream generation failure produces an error record and
// skips persistence entirely. The stream always terminates with an end
// record.
func (o *Orchestrator) ProcessQueryStream(ctx context.Context, req Request, emit func(StreamChunk) error) error {
	intent := o.router.Route(ctx, req.Query)
	strat := o.strategy(intent)
	conversationID := uuid.New().String()

	o.logger.Info("Processing query (stream)",
		zap.String("user_id", req.UserID),
		zap.String("conversation_id", conversationID),
		zap.String("intent", string(intent)),
	)

	if err := emit(StreamChunk{Type: ChunkMeta, ConversationID: conversationID}); err != nil {
		return err
	}

	var buf strings.Builder
	streamErr := strat.llm.Stream(ctx, strat.BuildPrompt(req.Query), func(delta string) error {
		buf.WriteString(delta)
		return emit(StreamChunk{Type: ChunkDelta, Text: delta})
	})
	if streamErr != nil {
		// No partial graph writes from a failed stream
		o.logger.Error("Upstream generation failed",
			zap.String("conversation_id", conversationID),
			zap.Error(streamErr),
		)
		_ = emit(StreamChunk{Type: ChunkError, Message: "生成回答失败，请稍后重试"})
		return emit(StreamChunk{Type: ChunkEnd})
	}

	answer := buf.String()
	triples := o.extractTriples(ctx, answer)
	o.persistTurn(ctx, req, conversationID, intent, answer, triples)

	return emit(StreamChunk{Type: ChunkEnd})
}

// ProcessQuery answers a query synchronously. Unlike the streaming path, a
// generation failure here is a hard error surfaced to the caller.
func (o *Orchestrator) ProcessQuery(ctx context.Context, req Request) (*Response, error) {
	intent := o.router.Route(ctx, req.Query)
	strat := o.strategy(intent)
	conversationID := uuid.New().String()

	o.logger.Info("Processing query",
		zap.String("user_id", req.UserID),
		zap.String("conversation_id", conversationID),
		zap.String("intent", string(intent)),
	)

	answer, err := strat.llm.Complete(ctx, strat.BuildPrompt(req.Query))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	annotated, fragments := annotateFragments(answer)
	triples := o.extractTriples(ctx, answer)
	o.persistTurn(ctx, req, conversationID, intent, answer, triples)

	return &Response{
		Answer:           annotated,
		Fragments:        fragments,
		KnowledgeTriples: triples,
		ConversationID:   conversationID,
		ParentID:         req.ParentID,
	}, nil
}

// ProcessRecursiveQuery answers a follow-up on a selected answer fragment.
// Follow-ups are conversational glue: they get a fresh conversation id but
// no extraction or persistence of their own.
func (o *Orchestrator) ProcessRecursiveQuery(ctx context.Context, req Request) (*Response, error) {
	prompt := fmt.Sprintf("%s\n\n用户追问: %s\n\n请针对性地回答：", recursivePrompt, req.Query)

	answer, err := o.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate follow-up answer: %w", err)
	}

	return &Response{
		Answer:           answer,
		Fragments:        []Fragment{},
		KnowledgeTriples: []extractor.Triple{},
		ConversationID:   uuid.New().String(),
		ParentID:         req.ParentID,
	}, nil
}

func (o *Orchestrator) strategy(intent IntentType) *Strategy {
	if s, ok := o.strategies[intent]; ok {
		return s
	}
	return o.strategies[IntentConcept]
}

// extractTriples runs the configured extraction path over the buffered
// answer. Extraction never fails the request.
func (o *Orchestrator) extractTriples(ctx context.Context, answer string) []extractor.Triple {
	if o.useLLMExtraction {
		return o.extractor.ExtractWithLLM(ctx, o.llm, answer)
	}
	return o.extractor.Extract(answer)
}

// persistTurn writes the turn's subgraph in a fixed sequence: user/root
// node, assistant/explanation node, their link, the optional parent link,
// then one keyword node per extracted triple object. Every step is
// best-effort: failures are logged and the already-streamed answer is
// unaffected, at worst the knowledge graph for this turn is incomplete.
func (o *Orchestrator) persistTurn(ctx context.Context, req Request, conversationID string, intent IntentType, answer string, triples []extractor.Triple) {
	now := time.Now().UTC()
	userNodeID := conversationID + "_user"

	if err := o.store.UpsertDialogueNode(ctx, graph.DialogueNode{
		NodeID:    userNodeID,
		UserID:    req.UserID,
		Role:      graph.RoleUser,
		Content:   req.Query,
		Type:      graph.NodeTypeRoot,
		Intent:    string(intent),
		Timestamp: now,
	}); err != nil {
		o.logger.Warn("Failed to save user node", zap.String("node_id", userNodeID), zap.Error(err))
	}

	if err := o.store.UpsertDialogueNode(ctx, graph.DialogueNode{
		NodeID:    conversationID,
		UserID:    req.UserID,
		Role:      graph.RoleAssistant,
		Content:   answer,
		Type:      graph.NodeTypeExplanation,
		Intent:    string(intent),
		Timestamp: now.Add(time.Millisecond),
	}); err != nil {
		o.logger.Warn("Failed to save assistant node", zap.String("node_id", conversationID), zap.Error(err))
	}

	if err := o.store.LinkNodes(ctx, userNodeID, conversationID, graph.EdgeHasChild, nil); err != nil {
		o.logger.Warn("Failed to link question to answer", zap.String("conversation_id", conversationID), zap.Error(err))
	}

	if req.ParentID != "" {
		attrs := map[string]interface{}{}
		if req.RefFragmentID != "" {
			attrs["fragment_id"] = req.RefFragmentID
		}
		if err := o.store.LinkNodes(ctx, req.ParentID, userNodeID, graph.EdgeHasChild, attrs); err != nil {
			o.logger.Warn("Failed to link parent conversation",
				zap.String("parent_id", req.ParentID),
				zap.Error(err),
			)
		}
	}

	o.persistKeywords(ctx, req.UserID, conversationID, now, triples)
}

// persistKeywords upserts one keyword node per distinct triple object and
// links each to the conversation's explanation node. The fan-out runs with
// bounded concurrency; individual failures are logged and skipped.
func (o *Orchestrator) persistKeywords(ctx context.Context, userID, conversationID string, base time.Time, triples []extractor.Triple) {
	seen := make(map[string]struct{}, len(triples))
	objects := make([]string, 0, len(triples))
	for _, t := range triples {
		if _, ok := seen[t.Object]; ok {
			continue
		}
		seen[t.Object] = struct{}{}
		objects = append(objects, t.Object)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(keywordWriteConcurrency)

	for i, object := range objects {
		i, object := i, object
		g.Go(func() error {
			kwID := fmt.Sprintf("%s_kw_%d", conversationID, i)
			node := graph.DialogueNode{
				NodeID:    kwID,
				UserID:    userID,
				Role:      graph.RoleAssistant,
				Content:   object,
				Title:     object,
				Type:      graph.NodeTypeKeyword,
				Timestamp: base.Add(time.Duration(i+2) * time.Millisecond),
			}
			if err := o.store.UpsertDialogueNode(ctx, node); err != nil {
				o.logger.Warn("Failed to save keyword node", zap.String("node_id", kwID), zap.Error(err))
				return nil
			}
			if err := o.store.LinkNodes(ctx, conversationID, kwID, graph.EdgeHasKeyword, nil); err != nil {
				o.logger.Warn("Failed to link keyword node", zap.String("node_id", kwID), zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
}
