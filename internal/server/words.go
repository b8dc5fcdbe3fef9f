package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/store"
)

type wordRequest struct {
	Word      string `json:"word" binding:"required"`
	Threshold *int   `json:"threshold"`
}

type tagsRequest struct {
	Type       string `json:"type"`
	Korean     string `json:"korean"`
	IsFavorite *bool  `json:"is_favorite"`
	IsLearning *bool  `json:"is_learning"`
	IsLearned  *bool  `json:"is_learned"`
}

func (s *Server) bindWord(c *gin.Context) (wordRequest, bool) {
	var req wordRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Word) == "" {
		s.fail(c, http.StatusBadRequest, "word is required", err)
		return wordRequest{}, false
	}
	return req, true
}

func (s *Server) handleWordCorrect(c *gin.Context) {
	req, ok := s.bindWord(c)
	if !ok {
		return
	}
	updated, err := s.store.IncrementWordCorrect(c.Request.Context(), req.Word)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to update word correct count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func (s *Server) handleCheckLearned(c *gin.Context) {
	req, ok := s.bindWord(c)
	if !ok {
		return
	}
	threshold := store.DefaultLearnedAt
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	updated, err := s.store.EnforceLearnedThreshold(c.Request.Context(), req.Word, threshold)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to enforce learned threshold", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "learned": updated > 0, "updated": updated})
}

func (s *Server) handleWordTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, ok := model.ParseWordType(req.Type)
	if !ok {
		s.fail(c, http.StatusBadRequest, "invalid type", nil)
		return
	}
	if strings.TrimSpace(req.Korean) == "" {
		s.fail(c, http.StatusBadRequest, "korean is required", nil)
		return
	}
	updated, err := s.store.UpdateWordTags(c.Request.Context(), t, req.Korean, model.WordTags{
		IsFavorite: req.IsFavorite,
		IsLearning: req.IsLearning,
		IsLearned:  req.IsLearned,
	})
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to update word tags", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) handleLearningWords(c *gin.Context) {
	words, err := s.store.ListLearningWords(c.Request.Context(), queryLimit(c, store.DefaultLearningLimit))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch learning words", err)
		return
	}
	if words == nil {
		words = []model.Word{}
	}
	c.JSON(http.StatusOK, words)
}

func (s *Server) handleWordsByType(c *gin.Context) {
	t, ok := model.ParseWordType(c.Param("type"))
	if !ok {
		s.fail(c, http.StatusBadRequest, "Invalid word type", nil)
		return
	}
	words, err := s.store.ListWordsByType(c.Request.Context(), t, queryLimit(c, store.DefaultWordLimit))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch "+string(t)+"s", err)
		return
	}
	if words == nil {
		words = []model.Word{}
	}
	c.JSON(http.StatusOK, words)
}

func (s *Server) handleWordSummary(c *gin.Context) {
	summary, err := s.store.WordSummary(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch words summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
