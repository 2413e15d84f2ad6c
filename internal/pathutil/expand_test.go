package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEmpty(t *testing.T) {
	got, err := Expand("   ")
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	got, err := Expand("~/state/replies.json")
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	want := filepath.Join(home, "state", "replies.json")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BURSAR_TEST_DIR", "/var/lib/bursar")

	got, err := Expand("$BURSAR_TEST_DIR/workspace")
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if got != "/var/lib/bursar/workspace" {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
