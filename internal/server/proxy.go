package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/kopra/internal/tts"
)

type chatRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Prompt is required", err)
		return
	}
	res, err := s.chat.Complete(c.Request.Context(), req.Prompt)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to get response from Groq", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleTTS(c *gin.Context) {
	var req tts.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		s.fail(c, http.StatusBadRequest, tts.ErrEmptyText.Error(), err)
		return
	}
	res, err := s.speech.Synthesize(c.Request.Context(), req)
	if errors.Is(err, tts.ErrEmptyText) {
		s.fail(c, http.StatusBadRequest, tts.ErrEmptyText.Error(), nil)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to generate TTS audio", err)
		return
	}
	s.sendAudio(c, res)
}

func (s *Server) handleTTSBatch(c *gin.Context) {
	var req tts.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Words) == 0 {
		s.fail(c, http.StatusBadRequest, tts.ErrNoWords.Error(), err)
		return
	}
	res, err := s.speech.Batch(c.Request.Context(), req)
	if errors.Is(err, tts.ErrNoWords) {
		s.fail(c, http.StatusBadRequest, tts.ErrNoWords.Error(), nil)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "TTS batch generation failed", err)
		return
	}
	s.sendAudio(c, res)
}

func (s *Server) sendAudio(c *gin.Context, res tts.Result) {
	data, err := os.ReadFile(res.Path)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to generate TTS audio", err)
		return
	}
	cache := "MISS"
	if res.Cached {
		cache = "HIT"
	}
	c.Header("X-Cache", cache)
	c.Data(http.StatusOK, "audio/mpeg", data)
}
