package spawn

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOutput(t *testing.T) {
	got, err := Output(context.Background(), "printf 'hello\\n'")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if got != "hello" {
		t.Errorf("Output = %q, want %q", got, "hello")
	}
}

func TestOutputEnv(t *testing.T) {
	got, err := Output(context.Background(), `echo "$PULSEBAR_BUTTON"`, "PULSEBAR_BUTTON=3")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if got != "3" {
		t.Errorf("Output = %q, want %q", got, "3")
	}
}

func TestOutputFailureIncludesStderr(t *testing.T) {
	_, err := Output(context.Background(), "echo broken >&2; exit 2")
	if err == nil {
		t.Fatal("Output succeeded for a failing command")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not mention stderr", err)
	}
}

func TestOutputTimeoutKillsChildren(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Output(ctx, "sleep 3; echo done")
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("Output succeeded past its deadline")
	}
	if elapsed > 1500*time.Millisecond {
		t.Errorf("Output returned after %v, want well under the 3s sleep", elapsed)
	}
}

func TestDetached(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Detached(logger, "touch "+marker); err != nil {
		t.Fatalf("Detached: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("detached command did not run")
}

func TestDetachedEmpty(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Detached(logger, "  "); err == nil {
		t.Error("Detached accepted an empty command")
	}
}
