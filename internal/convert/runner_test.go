package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
	"github.com/rafey804/flipfilex-sub000/internal/infra"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunSuccessCapturesOutput(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	tool := writeScript(t, "echo done\n")

	out, err := r.Run(context.Background(), time.Minute, tool)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != "done\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestRunNonzeroExitIsConverterFailed(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	tool := writeScript(t, "echo broken >&2\nexit 3\n")

	_, err := r.Run(context.Background(), time.Minute, tool)
	if err == nil || domain.KindOf(err) != domain.ErrConverterFailed {
		t.Fatalf("err = %v, want converter-failed", err)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	tool := writeScript(t, "sleep 30\n")

	start := time.Now()
	_, err := r.Run(context.Background(), 100*time.Millisecond, tool)
	if err == nil || domain.KindOf(err) != domain.ErrTimeout {
		t.Fatalf("err = %v, want timeout", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout did not terminate the process promptly")
	}
}

func TestRunMissingBinaryIsDependencyMissing(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	_, err := r.Run(context.Background(), time.Minute, "surely-not-installed-tool-xyz")
	if err == nil || domain.KindOf(err) != domain.ErrDependencyMissing {
		t.Fatalf("err = %v, want dependency-missing", err)
	}
}

func TestRunDiskFullIsResourceExhausted(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	tool := writeScript(t, "echo 'write error: No space left on device' >&2\nexit 1\n")

	_, err := r.Run(context.Background(), time.Minute, tool)
	if err == nil || domain.KindOf(err) != domain.ErrResourceExhausted {
		t.Fatalf("err = %v, want resource-exhausted", err)
	}
}

func TestRunScanFeedsLines(t *testing.T) {
	r := NewRunner(infra.NewLogger("test"))
	tool := writeScript(t, "echo one\necho two\n")

	var lines []string
	_, err := r.RunScan(context.Background(), time.Minute, func(l string) { lines = append(lines, l) }, tool)
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestVerifyOutput(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.pdf")
	if err := VerifyOutput(missing); err == nil {
		t.Fatalf("missing output accepted")
	}

	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := VerifyOutput(empty); err == nil {
		t.Fatalf("empty output accepted")
	}
	if _, statErr := os.Stat(empty); !os.IsNotExist(statErr) {
		t.Fatalf("empty output not removed")
	}

	good := filepath.Join(dir, "good.pdf")
	if err := os.WriteFile(good, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := VerifyOutput(good); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}
}
