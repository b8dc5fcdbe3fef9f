package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/store"
)

// phraseRequest accepts both the single blank_word_index of older clients
// and blank_word_indices.
type phraseRequest struct {
	KoreanText       string          `json:"korean_text"`
	EnglishText      string          `json:"english_text"`
	BlankWordIndex   *int            `json:"blank_word_index"`
	BlankWordIndices []int           `json:"blank_word_indices"`
	CorrectAnswers   []model.Answers `json:"correct_answers"`
	GrammarBreakdown string          `json:"grammar_breakdown"`
	BlankWordTypes   []string        `json:"blank_word_types"`
	WordTypes        []string        `json:"word_types"`
}

func (r phraseRequest) phrase() model.Phrase {
	indices := r.BlankWordIndices
	if len(indices) == 0 && r.BlankWordIndex != nil {
		indices = []int{*r.BlankWordIndex}
	}
	return model.Phrase{
		KoreanText:       r.KoreanText,
		EnglishText:      r.EnglishText,
		BlankWordIndices: indices,
		CorrectAnswers:   r.CorrectAnswers,
		GrammarBreakdown: r.GrammarBreakdown,
		BlankWordTypes:   r.BlankWordTypes,
		WordTypes:        r.WordTypes,
	}
}

const errPhraseFields = "korean_text and english_text are required"

func (s *Server) bindPhrase(c *gin.Context) (model.Phrase, bool) {
	var req phraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body", err)
		return model.Phrase{}, false
	}
	if strings.TrimSpace(req.KoreanText) == "" || strings.TrimSpace(req.EnglishText) == "" {
		s.fail(c, http.StatusBadRequest, errPhraseFields, nil)
		return model.Phrase{}, false
	}
	return req.phrase(), true
}

func phraseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleListPhrases(c *gin.Context) {
	phrases, err := s.store.ListPhrases(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch curriculum phrases", err)
		return
	}
	if phrases == nil {
		phrases = []model.Phrase{}
	}
	c.JSON(http.StatusOK, phrases)
}

func (s *Server) handleRandomPhrase(c *gin.Context) {
	p, err := s.store.RandomPhrase(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.fail(c, http.StatusNotFound, "No curriculum phrases found", nil)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to fetch random curriculum phrase", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleAddPhrase(c *gin.Context) {
	p, ok := s.bindPhrase(c)
	if !ok {
		return
	}
	id, err := s.store.AddPhrase(c.Request.Context(), p)
	if errors.Is(err, store.ErrInvalidPhrase) {
		s.fail(c, http.StatusBadRequest, "Invalid curriculum phrase", err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to add curriculum phrase", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (s *Server) handleUpdatePhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		s.fail(c, http.StatusBadRequest, "Invalid id", nil)
		return
	}
	p, ok := s.bindPhrase(c)
	if !ok {
		return
	}
	err := s.store.UpdatePhrase(c.Request.Context(), id, p)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "Curriculum phrase not found", nil)
	case errors.Is(err, store.ErrInvalidPhrase):
		s.fail(c, http.StatusBadRequest, "Invalid curriculum phrase", err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Failed to update curriculum phrase", err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (s *Server) handleDeletePhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		s.fail(c, http.StatusBadRequest, "Invalid id", nil)
		return
	}
	err := s.store.DeletePhrase(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "Curriculum phrase not found", nil)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Failed to delete curriculum phrase", err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// statsRequest counts anything but the JSON literal false as correct, so
// "false" as a string, null or a missing field all count as correct.
type statsRequest struct {
	Correct json.RawMessage `json:"correct"`
}

func (r statsRequest) correct() bool {
	return strings.TrimSpace(string(r.Correct)) != "false"
}

func (s *Server) handlePhraseStats(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		s.fail(c, http.StatusBadRequest, "Invalid id", nil)
		return
	}
	var req statsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	correct := req.correct()
	err := s.store.UpdateStats(c.Request.Context(), id, correct)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "Curriculum phrase not found", nil)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Failed to update curriculum phrase stats", err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
