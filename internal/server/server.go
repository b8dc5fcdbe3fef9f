// Package server exposes the practice data, completion and speech proxies
// over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/tts"
)

// Store is the persistence surface used by the handlers.
type Store interface {
	ListPhrases(ctx context.Context) ([]model.Phrase, error)
	RandomPhrase(ctx context.Context) (model.Phrase, error)
	AddPhrase(ctx context.Context, p model.Phrase) (int64, error)
	UpdatePhrase(ctx context.Context, id int64, p model.Phrase) error
	DeletePhrase(ctx context.Context, id int64) error
	UpdateStats(ctx context.Context, id int64, correct bool) error

	IncrementWordCorrect(ctx context.Context, korean string) (int64, error)
	EnforceLearnedThreshold(ctx context.Context, korean string, threshold int) (int64, error)
	UpdateWordTags(ctx context.Context, t model.WordType, korean string, tags model.WordTags) (int64, error)
	ListLearningWords(ctx context.Context, limit int) ([]model.Word, error)
	ListWordsByType(ctx context.Context, t model.WordType, limit int) ([]model.Word, error)
	WordSummary(ctx context.Context) (map[model.WordType]model.WordTypeSummary, error)

	GetModelSentence(ctx context.Context) (model.ModelSentence, error)
	SaveModelSentence(ctx context.Context, english, korean string) error
	DeleteModelSentence(ctx context.Context) error

	ListConversationSets(ctx context.Context) ([]model.ConversationSet, error)
	SaveConversationSet(ctx context.Context, set model.ConversationSet) (model.ConversationSet, error)
	DeleteConversationSet(ctx context.Context, id string) error
}

// Chat answers single prompts.
type Chat interface {
	Complete(ctx context.Context, prompt string) (completion.Result, error)
}

// Generator translates messages and writes model sentence variations.
type Generator interface {
	Translate(ctx context.Context, text string) (string, error)
	Variations(ctx context.Context, korean, english string, learning []string) ([]model.SentencePair, error)
}

// Speech synthesizes cached audio files.
type Speech interface {
	Synthesize(ctx context.Context, req tts.Request) (tts.Result, error)
	Batch(ctx context.Context, req tts.BatchRequest) (tts.Result, error)
}

// Options configures a Server.
type Options struct {
	Store      Store
	Chat       Chat
	Generator  Generator
	Speech     Speech
	Logger     *zap.Logger
	Production bool

	// CORSOrigins lists allowed browser origins; empty allows any origin.
	CORSOrigins []string
}

// Server owns the gin engine and its dependencies.
type Server struct {
	store  Store
	chat   Chat
	gen    Generator
	speech Speech
	logger *zap.Logger
	engine *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		store:  opts.Store,
		chat:   opts.Chat,
		gen:    opts.Generator,
		speech: opts.Speech,
		logger: opts.Logger,
		engine: gin.New(),
	}
	s.engine.Use(recovery(s.logger), requestLogger(s.logger), corsMiddleware(opts.CORSOrigins))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/tts", s.handleTTS)
	api.POST("/tts/batch", s.handleTTSBatch)
	api.POST("/translate", s.handleTranslate)
	api.POST("/generate-variations", s.handleGenerateVariations)

	phrases := api.Group("/curriculum-phrases")
	phrases.GET("", s.handleListPhrases)
	phrases.GET("/random", s.handleRandomPhrase)
	phrases.POST("", s.handleAddPhrase)
	phrases.PUT("/:id", s.handleUpdatePhrase)
	phrases.DELETE("/:id", s.handleDeletePhrase)
	phrases.POST("/:id/correct", s.handlePhraseStats)

	words := api.Group("/words")
	words.POST("/correct", s.handleWordCorrect)
	words.POST("/check-learned", s.handleCheckLearned)
	words.POST("/tags", s.handleWordTags)
	words.GET("/learning", s.handleLearningWords)
	words.GET("/stats/summary", s.handleWordSummary)
	words.GET("/:type", s.handleWordsByType)

	api.GET("/model-sentence", s.handleGetModelSentence)
	api.POST("/model-sentence", s.handleSaveModelSentence)
	api.DELETE("/model-sentence", s.handleDeleteModelSentence)

	api.GET("/conversations", s.handleListConversations)
	api.POST("/conversations", s.handleSaveConversation)
	api.DELETE("/conversations/:id", s.handleDeleteConversation)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// fail writes an error body. Server errors are logged with the request path.
func (s *Server) fail(c *gin.Context, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		if status >= http.StatusInternalServerError {
			resp.Details = err.Error()
			s.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		} else {
			s.logger.Debug(msg, zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
	c.AbortWithStatusJSON(status, resp)
}
