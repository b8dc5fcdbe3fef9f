// Package model defines shared data structures.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the phrase source for a practice session.
type Mode int

// Practice modes. Values match the persisted practice_mode setting.
const (
	ModeCurriculum   Mode = 1
	ModeVerbPractice Mode = 2
	ModeConversation Mode = 3
)

// Modes lists the practice modes in cycling order.
var Modes = []Mode{ModeCurriculum, ModeVerbPractice, ModeConversation}

func (m Mode) String() string {
	switch m {
	case ModeCurriculum:
		return "curriculum"
	case ModeVerbPractice:
		return "verb"
	case ModeConversation:
		return "conversation"
	default:
		return "unknown"
	}
}

// Generative reports whether the mode builds its pool from generated content.
func (m Mode) Generative() bool {
	return m == ModeVerbPractice || m == ModeConversation
}

// Next returns the following mode in cycling order.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeCurriculum
}

// ParseMode accepts a mode name or its numeric value.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "1", "curriculum":
		return ModeCurriculum, nil
	case "2", "verb", "verb-practice":
		return ModeVerbPractice, nil
	case "3", "conversation":
		return ModeConversation, nil
	}
	return 0, fmt.Errorf("unknown mode %q (expected curriculum, verb or conversation)", s)
}

// ID prefixes for phrases that do not come from the curriculum store.
const (
	PrefixVariation    = "variation-"
	PrefixRemix        = "remix-"
	PrefixVerb         = "verb-"
	PrefixConversation = "conv-"
)

// Answers holds the acceptable answers for one blank.
type Answers []string

// UnmarshalJSON accepts either a single string or a list of strings.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Answers{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("answers must be a string or a list of strings: %w", err)
	}
	*a = Answers(list)
	return nil
}

// UnmarshalYAML accepts either a single string or a list of strings.
func (a *Answers) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = Answers{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return fmt.Errorf("answers must be a string or a list of strings: %w", err)
	}
	*a = Answers(list)
	return nil
}

// Phrase is a Korean/English sentence pair used as a practice source.
type Phrase struct {
	ID               string    `json:"id" yaml:"id,omitempty"`
	KoreanText       string    `json:"korean_text" yaml:"korean" validate:"required"`
	EnglishText      string    `json:"english_text" yaml:"english" validate:"required"`
	TimesCorrect     int       `json:"times_correct" yaml:"-" validate:"gte=0"`
	TimesIncorrect   int       `json:"times_incorrect" yaml:"-" validate:"gte=0"`
	GrammarBreakdown string    `json:"grammar_breakdown,omitempty" yaml:"grammar,omitempty"`
	BlankWordIndices []int     `json:"blank_word_indices,omitempty" yaml:"blanks,omitempty" validate:"max=3,dive,gte=0"`
	BlankWordTypes   []string  `json:"blank_word_types,omitempty" yaml:"blank_types,omitempty"`
	CorrectAnswers   []Answers `json:"correct_answers,omitempty" yaml:"answers,omitempty"`
	WordTypes        []string  `json:"word_types,omitempty" yaml:"word_types,omitempty"`
	NoTrack          bool      `json:"no_track,omitempty" yaml:"-"`
	CreatedAt        time.Time `json:"created_at,omitempty" yaml:"-"`
}

// StoreID returns the numeric curriculum id, or false for generated phrases.
func (p Phrase) StoreID() (int64, bool) {
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Trackable reports whether completion stats should be written for the phrase.
func (p Phrase) Trackable() bool {
	if p.NoTrack {
		return false
	}
	if strings.HasPrefix(p.ID, PrefixVariation) || strings.HasPrefix(p.ID, PrefixRemix) {
		return false
	}
	_, ok := p.StoreID()
	return ok
}

// BlankPhrase is the rendered form of a phrase with some tokens blanked out.
type BlankPhrase struct {
	PhraseID       string
	Tokens         []string
	BlankIndices   []int
	Blanks         []string
	CorrectAnswers []Answers
	Translation    string
}

// DisplayText joins the tokens with blanks replaced by the marker.
func (b BlankPhrase) DisplayText() string {
	return strings.Join(b.Tokens, " ")
}

// WordType names a part-of-speech vocabulary table.
type WordType string

// Vocabulary word types.
const (
	WordNoun        WordType = "noun"
	WordProperNoun  WordType = "proper-noun"
	WordVerb        WordType = "verb"
	WordAdjective   WordType = "adjective"
	WordAdverb      WordType = "adverb"
	WordPronoun     WordType = "pronoun"
	WordConjunction WordType = "conjunction"
	WordParticle    WordType = "particle"
)

// WordTypes lists every vocabulary word type.
var WordTypes = []WordType{
	WordNoun, WordProperNoun, WordVerb, WordAdjective,
	WordAdverb, WordPronoun, WordConjunction, WordParticle,
}

// ParseWordType validates a word type name.
func ParseWordType(s string) (WordType, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, t := range WordTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Word is a vocabulary entry. Subtype is the conjugation, pronoun or
// particle type for the tables that carry one.
type Word struct {
	ID             int64     `json:"id"`
	Type           WordType  `json:"type"`
	Korean         string    `json:"korean" validate:"required"`
	English        string    `json:"english"`
	Romanization   string    `json:"romanization,omitempty"`
	BaseForm       string    `json:"base_form,omitempty"`
	Subtype        string    `json:"subtype,omitempty"`
	TimesSeen      int       `json:"times_seen"`
	TimesCorrect   int       `json:"times_correct"`
	TimesIncorrect int       `json:"times_incorrect"`
	IsFavorite     bool      `json:"is_favorite"`
	IsLearning     bool      `json:"is_learning"`
	IsLearned      bool      `json:"is_learned"`
	CreatedAt      time.Time `json:"created_at"`
}

// WordTags updates the tag flags of a word. Nil fields are left unchanged.
type WordTags struct {
	IsFavorite *bool `json:"is_favorite"`
	IsLearning *bool `json:"is_learning"`
	IsLearned  *bool `json:"is_learned"`
}

// WordTypeSummary counts vocabulary per type.
type WordTypeSummary struct {
	Count     int `json:"count"`
	TotalSeen int `json:"totalSeen"`
}

// ModelSentence is the singleton active model sentence.
type ModelSentence struct {
	English   string    `json:"english"`
	Korean    string    `json:"korean"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SentencePair is a generated Korean sentence with its translation.
type SentencePair struct {
	Korean  string `json:"korean"`
	English string `json:"english"`
}

// ConversationItem is one sentence of a saved conversation.
type ConversationItem struct {
	Korean  string `json:"korean" yaml:"korean"`
	English string `json:"english" yaml:"english"`
}

// ConversationSet is a saved conversation used by conversation mode.
type ConversationSet struct {
	ID        string             `json:"id" yaml:"id,omitempty"`
	Title     string             `json:"title" yaml:"title"`
	Items     []ConversationItem `json:"items" yaml:"items"`
	CreatedAt time.Time          `json:"created_at" yaml:"-"`
}

// Config defines practice settings.
type Config struct {
	Mode       Mode
	Blanks     int
	Mute       bool
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
	Seed       int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        Mode
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Attempt captures one completed phrase in a practice session.
type Attempt struct {
	StartedAt  time.Time
	EndedAt    time.Time
	Mode       Mode
	PhraseID   string
	Blanks     int
	Mistakes   int
	DurationMs int64
}

// BlankStats stores per-word results for one attempt.
type BlankStats struct {
	Word      string
	WordType  string
	Correct   int
	Incorrect int
}

// WordAggregate aggregates blank stats across attempts.
type WordAggregate struct {
	Word      string
	WordType  string
	Correct   int
	Incorrect int
}

// AttemptAggregate summarizes an attempt for reporting.
type AttemptAggregate struct {
	AttemptID  int64
	EndedAt    time.Time
	Mode       Mode
	Blanks     int
	Mistakes   int
	DurationMs int64
}
