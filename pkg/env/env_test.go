package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("PAYBRIDGE_ENV_TEST", "  value ")
	if got := Get("PAYBRIDGE_ENV_TEST", "fallback"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}

	t.Setenv("PAYBRIDGE_ENV_TEST", "   ")
	if got := Get("PAYBRIDGE_ENV_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}
