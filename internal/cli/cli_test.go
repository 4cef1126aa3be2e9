package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Keksclan/rawrfetch"
	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/transport"
)

func fakeCatalog(t *testing.T) rawrfetch.Option {
	t.Helper()
	return rawrfetch.WithTransport(transport.Func(func(_ context.Context, url string, _ map[string]string, _ time.Duration) ([]byte, error) {
		switch {
		case strings.HasSuffix(url, "/api/v1/patreon/user/42/profile"):
			return []byte(`{"id":"42","service":"patreon","name":"alice"}`), nil
		case strings.Contains(url, "/api/v1/patreon/user/42/posts"):
			return []byte(`[{"id":"1","user":"42","service":"patreon","title":"hello"}]`), nil
		case strings.Contains(url, "/api/v1/creators/search"):
			return []byte(`[{"id":"42","service":"patreon","name":"alice"}]`), nil
		}
		return nil, &transport.StatusError{Code: 404, URL: url}
	}))
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("RAWRFETCH_PERSIST_BACKEND", "none")
	var stdout, stderr bytes.Buffer
	c := New(&stdout, &stderr, fakeCatalog(t), rawrfetch.WithLogger(logger.Nop()))
	err := c.Execute(t.Context(), append(args, "--env-file", "testdata-missing.env")...)
	return stdout.String(), stderr.String(), err
}

func TestCLI_Creator(t *testing.T) {
	out, _, err := run(t, "creator", "patreon", "42")
	if err != nil {
		t.Fatalf("creator: %v", err)
	}
	var got struct{ Name string }
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if got.Name != "alice" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestCLI_Posts(t *testing.T) {
	out, _, err := run(t, "posts", "patreon", "42", "--pages", "3")
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	var got listing
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Posts) != 1 || got.HasMore {
		t.Fatalf("unexpected listing %+v", got)
	}
}

func TestCLI_SearchNumericNeedsService(t *testing.T) {
	_, _, err := run(t, "search", "12345")
	if err == nil || !strings.Contains(err.Error(), "specific service") {
		t.Fatalf("err = %v, want guidance message", err)
	}
}

func TestCLI_NotFound(t *testing.T) {
	_, _, err := run(t, "creator", "patreon", "7")
	if err == nil || !strings.Contains(err.Error(), "Nothing was found") {
		t.Fatalf("err = %v, want not found message", err)
	}
}

func TestCLI_CacheStats(t *testing.T) {
	out, _, err := run(t, "cache", "stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats map[string]int
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatal(err)
	}
	if _, ok := stats["creators"]; !ok {
		t.Fatalf("stats = %v", stats)
	}
}
