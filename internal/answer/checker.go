package answer

import (
	"context"

	"github.com/verte-zerg/kopra/internal/model"
)

// Outcome classifies the result of a submission.
type Outcome int

// Submission outcomes.
const (
	Ignored Outcome = iota
	Advance
	Complete
	Incorrect
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Advance:
		return "advance"
	case Complete:
		return "complete"
	case Incorrect:
		return "incorrect"
	case Stale:
		return "stale"
	default:
		return "ignored"
	}
}

// Result describes what a submission did.
type Result struct {
	Outcome  Outcome
	Blank    int
	Next     int
	Expected string
}

// Checker tracks the typed values for each blank of one phrase.
type Checker struct {
	phrase   model.BlankPhrase
	values   []string
	hints    []string
	current  int
	mistakes int
	done     bool
}

// NewChecker starts checking the given blank phrase at its first blank.
func NewChecker(bp model.BlankPhrase) *Checker {
	return &Checker{
		phrase: bp,
		values: make([]string, len(bp.Blanks)),
		hints:  make([]string, len(bp.Blanks)),
	}
}

// Phrase returns the blank phrase being checked.
func (c *Checker) Phrase() model.BlankPhrase { return c.phrase }

// Current returns the active blank position.
func (c *Checker) Current() int { return c.current }

// Done reports whether the phrase was completed.
func (c *Checker) Done() bool { return c.done }

// Mistakes returns the number of incorrect submissions so far.
func (c *Checker) Mistakes() int { return c.mistakes }

// Value returns the stored value of blank i.
func (c *Checker) Value(i int) string {
	if i < 0 || i >= len(c.values) {
		return ""
	}
	return c.values[i]
}

// Hint returns the placeholder hint of blank i, set after a wrong answer.
func (c *Checker) Hint(i int) string {
	if i < 0 || i >= len(c.hints) {
		return ""
	}
	return c.hints[i]
}

// Focus moves the cursor to blank i so an earlier value can be edited.
func (c *Checker) Focus(i int) bool {
	if c.done || i < 0 || i >= len(c.values) {
		return false
	}
	c.current = i
	return true
}

// Edit replaces the stored value of blank i without checking it.
func (c *Checker) Edit(i int, value string) {
	if i < 0 || i >= len(c.values) {
		return
	}
	c.values[i] = value
}

// Submit checks input against the active blank.
func (c *Checker) Submit(input string) Result {
	if c.done || len(c.values) == 0 {
		return Result{Outcome: Ignored, Blank: c.current, Next: c.current}
	}
	i := c.current
	expected := c.phrase.CorrectAnswers[i]
	if !Matches(input, expected) {
		c.values[i] = ""
		if len(expected) > 0 {
			c.hints[i] = expected[0]
		}
		c.mistakes++
		return Result{Outcome: Incorrect, Blank: i, Next: i, Expected: c.hints[i]}
	}

	c.values[i] = input
	c.hints[i] = ""
	next := c.firstMismatch(i + 1)
	if next < 0 {
		next = c.firstMismatch(0)
	}
	switch {
	case next < 0:
		c.done = true
		return Result{Outcome: Complete, Blank: i, Next: i}
	case next > i:
		c.current = next
		return Result{Outcome: Advance, Blank: i, Next: next}
	default:
		c.current = next
		return Result{Outcome: Stale, Blank: i, Next: next}
	}
}

func (c *Checker) firstMismatch(from int) int {
	for j := from; j < len(c.values); j++ {
		if !Matches(c.values[j], c.phrase.CorrectAnswers[j]) {
			return j
		}
	}
	return -1
}

// Reporter receives practice results for stored phrases.
type Reporter interface {
	UpdateStats(ctx context.Context, id int64, correct bool) error
}

// Record reports a result for trackable phrases and is a no-op otherwise.
func Record(ctx context.Context, r Reporter, p model.Phrase, correct bool) error {
	if r == nil || !p.Trackable() {
		return nil
	}
	id, _ := p.StoreID()
	return r.UpdateStats(ctx, id, correct)
}
