package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/local/betteria/internal/raster"
	"github.com/local/betteria/internal/threshold"
)

// LoggingConfig holds logging-related configuration. Values come from
// the environment so they can be tuned without growing the CLI surface.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options is the fully resolved run configuration: CLI flags merged
// with environment defaults, validated once before dispatch.
type Options struct {
	InputPath  string
	OutputPath string
	DPI        int
	Policy     threshold.Policy
	Jobs       int    // 0 = all logical CPUs
	Rasterizer string // mupdf | pdftoppm | pdftocairo
	Timeout    time.Duration
	Quiet      bool

	Logging LoggingConfig
}

// LoggingFromEnv loads logging configuration with sensible defaults.
func LoggingFromEnv() LoggingConfig {
	return LoggingConfig{
		Level:      getEnv("BETTERIA_LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("BETTERIA_LOG_PRETTY", "true")),
		File:       getEnv("BETTERIA_LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("BETTERIA_LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("BETTERIA_LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("BETTERIA_LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("BETTERIA_LOG_COMPRESS", "true")),
	}
}

// ParseJobs interprets the --jobs flag: "auto", "max", "" and "0" all
// mean one worker per logical CPU; any other value must be a
// non-negative integer.
func ParseJobs(value string) (int, error) {
	token := strings.ToLower(strings.TrimSpace(value))
	if token == "" || token == "auto" || token == "max" || token == "0" {
		return 0, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("invalid jobs value: %q", value)
	}
	if n < 0 {
		return 0, fmt.Errorf("jobs must be non-negative, got %d", n)
	}
	return n, nil
}

// DefaultOutputPath derives the output name from the input:
// dir/scan.pdf -> dir/scan-enhanced.pdf.
func DefaultOutputPath(inputPath string) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(filepath.Dir(inputPath), stem+"-enhanced.pdf")
}

// Validate is the single fail-fast gate: every configuration error is
// caught here, before any page is rasterized.
func (o Options) Validate() error {
	if o.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if info, err := os.Stat(o.OutputPath); err == nil && info.IsDir() {
		return fmt.Errorf("output path points to a directory: %s", o.OutputPath)
	}
	if o.DPI <= 0 {
		return fmt.Errorf("dpi must be a positive integer, got %d", o.DPI)
	}
	switch o.Rasterizer {
	case raster.BackendMuPDF, raster.BackendPdftoppm, raster.BackendPdftocairo:
	default:
		return fmt.Errorf("unsupported rasterizer backend: %s", o.Rasterizer)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if err := o.Policy.Validate(); err != nil {
		return err
	}
	return nil
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
