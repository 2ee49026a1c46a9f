package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepstudy/backend/internal/adapter"
	"deepstudy/backend/internal/agent"
	"deepstudy/backend/internal/extractor"
	"deepstudy/backend/internal/graph"
	"deepstudy/backend/internal/mindmap"
	"deepstudy/backend/pkg/config"
	apperrors "deepstudy/backend/pkg/errors"
	"deepstudy/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// chatService is the orchestrator surface the HTTP layer depends on
type chatService interface {
	ProcessQueryStream(ctx context.Context, req agent.Request, emit func(agent.StreamChunk) error) error
	ProcessQuery(ctx context.Context, req agent.Request) (*agent.Response, error)
	ProcessRecursiveQuery(ctx context.Context, req agent.Request) (*agent.Response, error)
}

// dialogueStore is the read surface the HTTP layer depends on
type dialogueStore interface {
	GetDialogueTree(ctx context.Context, rootID, userID string, maxDepth int) (*graph.DialogueTree, error)
	GetMindMapRows(ctx context.Context, conversationID string) ([]graph.MindMapRow, error)
	GetDialogueNode(ctx context.Context, nodeID string) (*graph.DialogueNode, error)
}

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting learning assistant server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	graphRepo := graph.NewRepository(driver)
	llmAdapter := adapter.NewLLMAdapter(cfg.ModelScopeAPIBase, cfg.ModelScopeAPIKey, cfg.ModelName, cfg.MaxTokens)
	coderAdapter := adapter.NewLLMAdapter(cfg.ModelScopeAPIBase, cfg.ModelScopeAPIKey, cfg.CoderModelName, cfg.MaxTokens)
	orch := agent.NewOrchestrator(graphRepo, llmAdapter, coderAdapter)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, log, orch, graphRepo)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// chatRequest is the JSON body of both chat endpoints
type chatRequest struct {
	Query         string `json:"query" binding:"required"`
	ParentID      string `json:"parent_id"`
	SessionID     string `json:"session_id"`
	RefFragmentID string `json:"ref_fragment_id"`
	Recursive     bool   `json:"recursive"`
}

func setupRouter(cfg *config.Config, log *zap.Logger, orch chatService, store dialogueStore) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Streaming chat: newline-delimited JSON records
		api.POST("/chat", func(c *gin.Context) {
			userID := requireUserID(c)
			if userID == "" {
				return
			}

			var body chatRequest
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			req := agent.Request{
				UserID:        userID,
				Query:         body.Query,
				ParentID:      body.ParentID,
				SessionID:     body.SessionID,
				RefFragmentID: body.RefFragmentID,
			}

			c.Header("Content-Type", "application/x-ndjson")
			c.Header("Cache-Control", "no-cache")

			flusher, _ := c.Writer.(http.Flusher)
			writeLine := func(v interface{}) error {
				data, err := json.Marshal(v)
				if err != nil {
					return err
				}
				if _, err := c.Writer.Write(append(data, '\n')); err != nil {
					return err
				}
				if flusher != nil {
					flusher.Flush()
				}
				return nil
			}

			ctx := c.Request.Context()

			// A fragment follow-up replies with a single full record
			if body.Recursive {
				resp, err := orch.ProcessRecursiveQuery(ctx, req)
				if err != nil {
					log.Error("Recursive query failed", zap.Error(err))
					_ = writeLine(agent.StreamChunk{Type: agent.ChunkError, Message: "生成回答失败，请稍后重试"})
					_ = writeLine(agent.StreamChunk{Type: agent.ChunkEnd})
					return
				}
				_ = writeLine(agent.StreamChunk{
					Type:           agent.ChunkFull,
					ConversationID: resp.ConversationID,
					Answer:         resp.Answer,
					ParentID:       resp.ParentID,
				})
				return
			}

			emit := func(chunk agent.StreamChunk) error { return writeLine(chunk) }
			if err := orch.ProcessQueryStream(ctx, req, emit); err != nil {
				// Transport failure only; the client is already gone
				log.Warn("Chat stream aborted", zap.Error(err))
			}
		})

		// Synchronous chat
		api.POST("/chat/sync", func(c *gin.Context) {
			userID := requireUserID(c)
			if userID == "" {
				return
			}

			var body chatRequest
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			req := agent.Request{
				UserID:        userID,
				Query:         body.Query,
				ParentID:      body.ParentID,
				SessionID:     body.SessionID,
				RefFragmentID: body.RefFragmentID,
			}

			resp, err := orch.ProcessQuery(c.Request.Context(), req)
			if err != nil {
				log.Error("Chat query failed", zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "生成回答失败，请稍后重试"})
				return
			}

			c.JSON(http.StatusOK, resp)
		})

		// Dialogue tree of one conversation
		api.GET("/chat/conversation/:id", func(c *gin.Context) {
			userID := requireUserID(c)
			if userID == "" {
				return
			}

			tree, err := store.GetDialogueTree(c.Request.Context(), c.Param("id"), userID, cfg.MaxTreeDepth)
			if err != nil {
				if apperrors.IsNotFound(err) {
					c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
					return
				}
				log.Error("Failed to fetch dialogue tree", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation"})
				return
			}

			c.JSON(http.StatusOK, tree)
		})

		// Mind-map of one conversation: persisted subgraph first, triple
		// layout over the stored answer as fallback
		api.GET("/mindmap/:id", func(c *gin.Context) {
			if requireUserID(c) == "" {
				return
			}

			conversationID := c.Param("id")
			ctx := c.Request.Context()

			rows, err := store.GetMindMapRows(ctx, conversationID)
			if err != nil {
				log.Error("Failed to read mind-map subgraph", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build mind map"})
				return
			}
			if len(rows) > 0 {
				c.JSON(http.StatusOK, mindmap.FromSubgraph(rows))
				return
			}

			node, err := store.GetDialogueNode(ctx, conversationID)
			if err != nil {
				if apperrors.IsNotFound(err) {
					c.JSON(http.StatusOK, mindmap.Layout(nil))
					return
				}
				log.Error("Failed to fetch conversation node", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build mind map"})
				return
			}

			triples := extractor.New().Extract(node.Content)
			c.JSON(http.StatusOK, mindmap.Layout(triples))
		})
	}

	return router
}

// requireUserID reads the authenticated user from the X-User-ID header.
// Authentication itself lives in front of this service; an absent header
// is a client error.
func requireUserID(c *gin.Context) string {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-User-ID header"})
	}
	return userID
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
