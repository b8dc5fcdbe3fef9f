package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
		err  bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "WARN", want: zapcore.WarnLevel},
		{in: " error ", want: zapcore.ErrorLevel},
		{in: "loud", err: true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("ParseLevel(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestNewHonorsLevel(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env, "warn")
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Fatalf("%s logger should not log info at warn level", env)
		}
		if !logger.Core().Enabled(zapcore.ErrorLevel) {
			t.Fatalf("%s logger should log errors", env)
		}
	}
	if _, err := New("production", "nope"); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
