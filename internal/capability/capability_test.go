package capability

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectBinaryProbes(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\necho 'present version 1.2.3'\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	reg := Detect([]Probe{
		{Name: "present", Command: present, VersionArg: "-version"},
		{Name: "missing", Command: "definitely-not-a-real-binary", VersionArg: "-version"},
	})

	if !reg.Available("present") {
		t.Fatalf("expected present binary to be available")
	}
	if reg.Available("missing") {
		t.Fatalf("expected missing binary to be unavailable")
	}

	report := reg.Report()
	if len(report) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(report))
	}
	for _, st := range report {
		if st.Name == "present" && st.VersionHint != "present version 1.2.3" {
			t.Fatalf("unexpected version hint: %q", st.VersionHint)
		}
		if st.Name == "missing" && st.Detail == "" {
			t.Fatalf("expected detail for missing binary")
		}
	}
}

func TestDetectNonzeroExitWithBanner(t *testing.T) {
	binDir := t.TempDir()
	grumpy := filepath.Join(binDir, "grumpy")
	script := []byte("#!/bin/sh\necho 'grumpy 9.0'\nexit 1\n")
	if err := os.WriteFile(grumpy, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	reg := Detect([]Probe{{Name: "grumpy", Command: grumpy, VersionArg: "--version"}})
	if !reg.Available("grumpy") {
		t.Fatalf("tool printing a banner but exiting nonzero should count as available")
	}
}

func TestDetectRemoteProbes(t *testing.T) {
	reg := Detect([]Probe{
		{Name: "tts-api", Remote: true, Key: "sk-test"},
		{Name: "image-api", Remote: true, Key: ""},
	})

	if !reg.Available("tts-api") {
		t.Fatalf("keyed remote capability should be available")
	}
	if reg.Available("image-api") {
		t.Fatalf("keyless remote capability should be unavailable")
	}
	if missing := reg.Missing([]string{"tts-api", "image-api"}); len(missing) != 1 || missing[0] != "image-api" {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}

func TestAvailableUnknownName(t *testing.T) {
	reg := Detect(nil)
	if reg.Available("nope") {
		t.Fatalf("unknown capability must be unavailable")
	}
}
