package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all gateway settings, loaded from the environment.
type Config struct {
	Addr string

	// Gemini backend for the vision and transcription boundaries. An empty
	// key is allowed at load time; the affected boundary then fails each
	// request with a descriptive configuration error rather than a silent
	// empty result.
	GeminiAPIKey    string
	VisionModel     string
	TranscribeModel string

	// Request-shape limits.
	MaxBodyBytes     int64
	MaxImageB64Bytes int64
	MaxAudioBytes    int64

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// In-memory per-client limits.
	LimitRPS                   float64
	LimitBurst                 int
	LimitMaxConcurrentRequests int

	// Optional Postgres slide catalog. Empty => built-in demo deck.
	DatabaseURL string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
	UpstreamTimeout     time.Duration
}

// LoadFromEnv builds a Config from LIVEDECK_* environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                       envOr("LIVEDECK_ADDR", ":8080"),
		GeminiAPIKey:               strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		VisionModel:                envOr("LIVEDECK_VISION_MODEL", "gemini-2.0-flash"),
		TranscribeModel:            envOr("LIVEDECK_TRANSCRIBE_MODEL", "gemini-2.0-flash"),
		MaxBodyBytes:               envInt64Or("LIVEDECK_MAX_BODY_BYTES", 12<<20), // 12 MiB
		MaxImageB64Bytes:           envInt64Or("LIVEDECK_MAX_IMAGE_B64_BYTES", 8<<20),
		MaxAudioBytes:              envInt64Or("LIVEDECK_MAX_AUDIO_BYTES", 10<<20),
		CORSAllowedOrigins:         make(map[string]struct{}),
		LimitRPS:                   envFloat64Or("LIVEDECK_RATE_LIMIT_RPS", 2.0),
		LimitBurst:                 envIntOr("LIVEDECK_RATE_LIMIT_BURST", 4),
		LimitMaxConcurrentRequests: envIntOr("LIVEDECK_MAX_CONCURRENT_REQUESTS", 16),
		DatabaseURL:                strings.TrimSpace(os.Getenv("LIVEDECK_DATABASE_URL")),
		ReadHeaderTimeout:          envDurationOr("LIVEDECK_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                envDurationOr("LIVEDECK_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:        envDurationOr("LIVEDECK_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
		UpstreamTimeout:            envDurationOr("LIVEDECK_UPSTREAM_TIMEOUT", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("LIVEDECK_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_MAX_BODY_BYTES must be > 0")
	}
	if cfg.MaxImageB64Bytes <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_MAX_IMAGE_B64_BYTES must be > 0")
	}
	if cfg.MaxAudioBytes <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_MAX_AUDIO_BYTES must be > 0")
	}
	if cfg.LimitRPS < 0 {
		return Config{}, fmt.Errorf("LIVEDECK_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.LimitBurst < 0 {
		return Config{}, fmt.Errorf("LIVEDECK_RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.LimitMaxConcurrentRequests < 0 {
		return Config{}, fmt.Errorf("LIVEDECK_MAX_CONCURRENT_REQUESTS must be >= 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.UpstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVEDECK_UPSTREAM_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
