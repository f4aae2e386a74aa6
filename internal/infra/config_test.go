package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("CONVERTERS_FILE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.UploadDir != "./uploads" {
		t.Fatalf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" {
		t.Fatalf("FFmpeg default = %q", cfg.Tools.FFmpeg)
	}
	if cfg.StorageTTL != time.Hour {
		t.Fatalf("StorageTTL = %v, want 1h", cfg.StorageTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("UPLOAD_DIR", "/srv/uploads")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example , https://b.example")
	t.Setenv("CONVERTERS_FILE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.UploadDir != "/srv/uploads" {
		t.Fatalf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.Tools.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("FFmpeg = %q", cfg.Tools.FFmpeg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigTOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "converters.toml")
	doc := `
[tools]
ffmpeg = "/usr/local/bin/ffmpeg7"
qpdf = "/usr/local/bin/qpdf"

[pool]
workers = 9
depth = 128
`
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	t.Setenv("CONVERTERS_FILE", file)
	t.Setenv("WORKER_COUNT", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Tools.FFmpeg != "/usr/local/bin/ffmpeg7" {
		t.Fatalf("FFmpeg = %q", cfg.Tools.FFmpeg)
	}
	if cfg.Tools.Soffice != "soffice" {
		t.Fatalf("Soffice should keep default, got %q", cfg.Tools.Soffice)
	}
	if cfg.WorkerCount != 9 || cfg.QueueDepth != 128 {
		t.Fatalf("pool overrides not applied: %d/%d", cfg.WorkerCount, cfg.QueueDepth)
	}
}

func TestLoadConfigRejectsBadPool(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero worker count")
	}
}
