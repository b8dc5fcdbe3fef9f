// Package speech plays a revealed sentence a fixed number of times.
package speech

import (
	"context"
	"sync"
	"time"
)

// Playback defaults.
const (
	DefaultRepeat    = 3
	DefaultGap       = 500 * time.Millisecond
	DefaultPostDelay = 1200 * time.Millisecond
)

// Player speaks one utterance and returns when it finished.
type Player interface {
	Play(ctx context.Context, text string) error
}

// Sequencer runs repeated playback in the background and reports completion
// through a callback.
type Sequencer struct {
	player    Player
	repeat    int
	gap       time.Duration
	postDelay time.Duration
	onError   func(error)

	mu     sync.Mutex
	muted  bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithRepeat sets how many times a sentence is played.
func WithRepeat(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.repeat = n
		}
	}
}

// WithTiming sets the pause between utterances and the delay before the
// completion callback.
func WithTiming(gap, postDelay time.Duration) Option {
	return func(s *Sequencer) {
		s.gap = gap
		s.postDelay = postDelay
	}
}

// WithErrorHandler receives playback errors.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sequencer) { s.onError = fn }
}

// WithMuted starts the sequencer muted.
func WithMuted(muted bool) Option {
	return func(s *Sequencer) { s.muted = muted }
}

// New creates a Sequencer. A nil player behaves as muted.
func New(player Player, opts ...Option) *Sequencer {
	s := &Sequencer{
		player:    player,
		repeat:    DefaultRepeat,
		gap:       DefaultGap,
		postDelay: DefaultPostDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMuted toggles playback. The post delay still applies while muted.
func (s *Sequencer) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Muted reports whether playback is muted.
func (s *Sequencer) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Speak cancels any in-flight sequence and starts a new one. onDone runs
// once after the post delay unless the sequence is cancelled first.
func (s *Sequencer) Speak(text string, onDone func()) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	muted := s.muted || s.player == nil
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if !muted {
			s.play(ctx, text)
		}
		if !sleep(ctx, s.postDelay) {
			return
		}
		if onDone != nil {
			onDone()
		}
	}()
}

// Stop cancels the in-flight sequence without calling its callback.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// Wait blocks until the most recent sequence has finished or was cancelled.
func (s *Sequencer) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Sequencer) play(ctx context.Context, text string) {
	for i := 0; i < s.repeat; i++ {
		if i > 0 && !sleep(ctx, s.gap) {
			return
		}
		if err := s.player.Play(ctx, text); err != nil {
			if ctx.Err() == nil && s.onError != nil {
				s.onError(err)
			}
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}
