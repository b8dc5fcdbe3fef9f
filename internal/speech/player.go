package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/verte-zerg/kopra/internal/tts"
)

// AudioPlayer plays sentences by synthesizing them through the TTS client and
// handing the cached mp3 to an external audio command.
type AudioPlayer struct {
	client  *tts.Client
	lang    string
	rate    float64
	command []string
}

// NewAudioPlayer builds a player. command is split on whitespace and the
// audio file path is appended as the last argument.
func NewAudioPlayer(client *tts.Client, lang string, rate float64, command string) (*AudioPlayer, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, errors.New("audio command is empty")
	}
	if _, err := exec.LookPath(parts[0]); err != nil {
		return nil, fmt.Errorf("audio command %q not found: %w", parts[0], err)
	}
	return &AudioPlayer{client: client, lang: lang, rate: rate, command: parts}, nil
}

// Play implements Player.
func (p *AudioPlayer) Play(ctx context.Context, text string) error {
	res, err := p.client.Synthesize(ctx, tts.Request{Text: text, Lang: p.lang, Rate: p.rate})
	if err != nil {
		return err
	}
	args := append(append([]string(nil), p.command[1:]...), res.Path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("audio command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
