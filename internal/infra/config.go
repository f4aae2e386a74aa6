package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents application configuration loaded from environment
// variables, optionally overridden by a TOML file for deploy-time tuning of
// tool paths and pool sizing.
type Config struct {
	AppEnv    string
	Port      string
	UploadDir string

	AllowedOrigins []string

	WorkerCount int
	QueueDepth  int

	SweepInterval time.Duration
	StorageTTL    time.Duration

	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	HTTPShutdownTimeout time.Duration

	GeoIPDBPath string

	Tools ToolPaths

	TTSAPIKey    string
	TTSBaseURL   string
	ImageAPIKey  string
	ImageBaseURL string
}

// ToolPaths names the external binaries the converters shell out to. Each
// defaults to the bare command name resolved on PATH.
type ToolPaths struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	Soffice     string `toml:"soffice"`
	Ghostscript string `toml:"ghostscript"`
	QPDF        string `toml:"qpdf"`
	Pdftoppm    string `toml:"pdftoppm"`
	Tesseract   string `toml:"tesseract"`
	Qrencode    string `toml:"qrencode"`
}

type fileOverrides struct {
	Tools ToolPaths `toml:"tools"`
	Pool  struct {
		Workers int `toml:"workers"`
		Depth   int `toml:"depth"`
	} `toml:"pool"`
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. When CONVERTERS_FILE points at a TOML document, its
// values win over the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		WorkerCount: getEnvInt("WORKER_COUNT", 4),
		QueueDepth:  getEnvInt("QUEUE_DEPTH", 64),

		SweepInterval: time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 300)),
		StorageTTL:    time.Second * time.Duration(getEnvInt("STORAGE_TTL_SECONDS", 3600)),

		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 300)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		HTTPShutdownTimeout: time.Second * time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 30)),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		Tools: ToolPaths{
			FFmpeg:      getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobe:     getEnv("FFPROBE_PATH", "ffprobe"),
			Soffice:     getEnv("SOFFICE_PATH", "soffice"),
			Ghostscript: getEnv("GS_PATH", "gs"),
			QPDF:        getEnv("QPDF_PATH", "qpdf"),
			Pdftoppm:    getEnv("PDFTOPPM_PATH", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT_PATH", "tesseract"),
			Qrencode:    getEnv("QRENCODE_PATH", "qrencode"),
		},

		TTSAPIKey:    os.Getenv("TTS_API_KEY"),
		TTSBaseURL:   getEnv("TTS_BASE_URL", "https://api.openai.com/v1"),
		ImageAPIKey:  os.Getenv("IMAGE_API_KEY"),
		ImageBaseURL: getEnv("IMAGE_BASE_URL", "https://api.openai.com/v1"),
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if cfg.QueueDepth < 1 {
		return nil, fmt.Errorf("QUEUE_DEPTH must be at least 1")
	}

	if path := os.Getenv("CONVERTERS_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read converters file: %w", err)
	}
	var ov fileOverrides
	if err := toml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse converters file: %w", err)
	}
	applyToolOverride(&c.Tools.FFmpeg, ov.Tools.FFmpeg)
	applyToolOverride(&c.Tools.FFprobe, ov.Tools.FFprobe)
	applyToolOverride(&c.Tools.Soffice, ov.Tools.Soffice)
	applyToolOverride(&c.Tools.Ghostscript, ov.Tools.Ghostscript)
	applyToolOverride(&c.Tools.QPDF, ov.Tools.QPDF)
	applyToolOverride(&c.Tools.Pdftoppm, ov.Tools.Pdftoppm)
	applyToolOverride(&c.Tools.Tesseract, ov.Tools.Tesseract)
	applyToolOverride(&c.Tools.Qrencode, ov.Tools.Qrencode)
	if ov.Pool.Workers > 0 {
		c.WorkerCount = ov.Pool.Workers
	}
	if ov.Pool.Depth > 0 {
		c.QueueDepth = ov.Pool.Depth
	}
	return nil
}

func applyToolOverride(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
