package contextx

import "testing"

func TestWithRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-abc-123")
	got := RequestIDFromContext(ctx)
	if got != "req-abc-123" {
		t.Fatalf("got %q, want %q", got, "req-abc-123")
	}
}

func TestRequestIDFromContextMissing(t *testing.T) {
	got := RequestIDFromContext(t.Context())
	if got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestEnsureRequestIDKeepsExisting(t *testing.T) {
	ctx := WithRequestID(t.Context(), "fixed")
	got, id := EnsureRequestID(ctx)
	if id != "fixed" || got != ctx {
		t.Fatalf("expected existing ID to be kept, got %q", id)
	}
}

func TestEnsureRequestIDGenerates(t *testing.T) {
	ctx, id := EnsureRequestID(t.Context())
	if id == "" {
		t.Fatal("expected a generated ID")
	}
	if RequestIDFromContext(ctx) != id {
		t.Fatal("generated ID not stored on context")
	}
	_, other := EnsureRequestID(t.Context())
	if other == id {
		t.Fatal("expected distinct IDs for separate calls")
	}
}
