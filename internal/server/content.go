package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/store"
)

type modelSentenceRequest struct {
	English string `json:"english"`
	Korean  string `json:"korean"`
}

func (s *Server) handleGetModelSentence(c *gin.Context) {
	ms, err := s.store.GetModelSentence(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.fail(c, http.StatusNotFound, "No model sentence set", nil)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch model sentence", err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (s *Server) handleSaveModelSentence(c *gin.Context) {
	var req modelSentenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	english := strings.TrimSpace(req.English)
	korean := strings.TrimSpace(req.Korean)
	if english == "" || korean == "" {
		s.fail(c, http.StatusBadRequest, "Both english and korean are required", nil)
		return
	}
	if err := s.store.SaveModelSentence(c.Request.Context(), english, korean); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save model sentence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "english": english, "korean": korean})
}

func (s *Server) handleDeleteModelSentence(c *gin.Context) {
	if err := s.store.DeleteModelSentence(c.Request.Context()); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to clear model sentence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListConversations(c *gin.Context) {
	sets, err := s.store.ListConversationSets(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch conversations", err)
		return
	}
	if sets == nil {
		sets = []model.ConversationSet{}
	}
	c.JSON(http.StatusOK, sets)
}

func (s *Server) handleSaveConversation(c *gin.Context) {
	var set model.ConversationSet
	if err := c.ShouldBindJSON(&set); err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	hasItem := false
	for _, item := range set.Items {
		if strings.TrimSpace(item.Korean) != "" {
			hasItem = true
			break
		}
	}
	if !hasItem {
		s.fail(c, http.StatusBadRequest, "items array is required", nil)
		return
	}
	saved, err := s.store.SaveConversationSet(c.Request.Context(), set)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save conversation", err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	err := s.store.DeleteConversationSet(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "Conversation not found", nil)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Failed to delete conversation", err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
