package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil): %v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info level should be enabled by default")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug level should be disabled by default")
	}
}

func TestNew_MergesEmptyFields(t *testing.T) {
	cfg := &Config{Level: "debug"}
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug level should be enabled")
	}
	if cfg.Encoding != "" {
		t.Fatal("New must not mutate the caller's config")
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"bad level", Config{Level: "loud", Encoding: "json"}, "invalid level"},
		{"bad encoding", Config{Level: "info", Encoding: "xml"}, "invalid encoding"},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: got %v, want error containing %q", tc.name, err, tc.want)
		}
	}

	good := DefaultConfig()
	if err := good.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	_ = l.Sync()
}
