package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/generator"
	"github.com/verte-zerg/kopra/internal/model"
)

const (
	translateTimeout  = 15 * time.Second
	variationsTimeout = 20 * time.Second
	learningWordLimit = 50
)

type translateRequest struct {
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (s *Server) handleTranslate(c *gin.Context) {
	var req translateRequest
	_ = c.ShouldBindJSON(&req)
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Message)
	}
	if text == "" {
		s.fail(c, http.StatusBadRequest, "text is required", nil)
		return
	}
	if s.gen == nil {
		s.fail(c, http.StatusInternalServerError, "GROQ_API_KEY is not configured", completion.ErrNoAPIKey)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), translateTimeout)
	defer cancel()
	corrected, err := s.gen.Translate(ctx, text)
	if err != nil {
		s.failGeneration(c, "Groq request timed out", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrected": corrected})
}

type variationsResponse struct {
	Variations []model.SentencePair `json:"variations"`
}

type variationsRequest struct {
	English string `json:"english"`
	Korean  string `json:"korean"`
}

func (s *Server) handleGenerateVariations(c *gin.Context) {
	var req variationsRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.English) == "" || strings.TrimSpace(req.Korean) == "" {
		s.fail(c, http.StatusBadRequest, "Both english and korean sentences are required", nil)
		return
	}
	if s.gen == nil {
		s.fail(c, http.StatusInternalServerError, "GROQ_API_KEY is not configured", completion.ErrNoAPIKey)
		return
	}

	var learning []string
	if words, err := s.store.ListLearningWords(c.Request.Context(), learningWordLimit); err != nil {
		s.logger.Warn("could not load learning words", zap.Error(err))
	} else {
		for _, w := range words {
			learning = append(learning, w.Korean)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), variationsTimeout)
	defer cancel()
	variations, err := s.gen.Variations(ctx, req.Korean, req.English, learning)
	if errors.Is(err, generator.ErrMalformed) {
		s.fail(c, http.StatusInternalServerError, "Failed to parse variations", err)
		return
	}
	if err != nil {
		s.failGeneration(c, "Request timed out", err)
		return
	}
	c.JSON(http.StatusOK, variationsResponse{Variations: variations})
}

// failGeneration maps completion failures: a missing key is a server
// misconfiguration, deadlines are gateway timeouts, the rest are upstream
// errors.
func (s *Server) failGeneration(c *gin.Context, timeoutMsg string, err error) {
	switch {
	case errors.Is(err, completion.ErrNoAPIKey):
		s.fail(c, http.StatusInternalServerError, "GROQ_API_KEY is not configured", err)
	case errors.Is(err, context.DeadlineExceeded):
		s.fail(c, http.StatusGatewayTimeout, timeoutMsg, err)
	default:
		s.fail(c, http.StatusBadGateway, "Groq API error", err)
	}
}
