package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// SplitterConfig holds the default split thresholds. CLI flags may
// override individual values per run.
type SplitterConfig struct {
    MinAspectRatio      float64
    PaddingRatio        float64
    ConfidenceThreshold float64
    CoverContentRatio   float64
    EdgeExclusionRatio  float64
    MinForegroundRatio  float64
}

// BatchConfig defines batch driver behavior.
type BatchConfig struct {
    OutputDir string
    Workers   int
}

// MetricsConfig defines the optional Prometheus listener.
type MetricsConfig struct {
    Enabled bool
    Addr    string
}

// Config is the top-level configuration.
type Config struct {
    Logging  LoggingConfig
    Axiom    AxiomConfig
    Splitter SplitterConfig
    Batch    BatchConfig
    Metrics  MetricsConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/mangasplit.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_mangasplit",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // Splitter threshold defaults
    cfg.Splitter = SplitterConfig{
        MinAspectRatio:      parseFloat(getEnv("SPLIT_MIN_ASPECT_RATIO", "1.2"), 1.2),
        PaddingRatio:        parseFloat(getEnv("SPLIT_PADDING_RATIO", "0.015"), 0.015),
        ConfidenceThreshold: parseFloat(getEnv("SPLIT_CONFIDENCE_THRESHOLD", "0.1"), 0.1),
        CoverContentRatio:   parseFloat(getEnv("SPLIT_COVER_CONTENT_RATIO", "0.45"), 0.45),
        EdgeExclusionRatio:  parseFloat(getEnv("SPLIT_EDGE_EXCLUSION_RATIO", "0.12"), 0.12),
        MinForegroundRatio:  parseFloat(getEnv("SPLIT_MIN_FOREGROUND_RATIO", "0.01"), 0.01),
    }

    // Batch defaults
    cfg.Batch = BatchConfig{
        OutputDir: getEnv("SPLIT_OUTPUT_DIR", "split-output"),
        Workers:   parseInt(getEnv("SPLIT_WORKERS", "4"), 4),
    }

    // Metrics defaults
    cfg.Metrics = MetricsConfig{
        Enabled: parseBool(getEnv("METRICS_ENABLED", "0")),
        Addr:    getEnv("METRICS_ADDR", ":9090"),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
