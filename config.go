package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries all environment-driven settings. It is constructed once in
// main and injected; nothing reads the environment after startup.
type Config struct {
	Addr        string
	DownloadDir string
	CacheDir    string

	MaxConcurrent int
	QueueCapacity int

	Retention       time.Duration
	CacheTTL        time.Duration
	CleanupInterval time.Duration

	MaxAttempts  int
	RetryBackoff time.Duration

	AllowedDomains []string
	YouTubeAPIKey  string
	RedisAddr      string

	RequestsPerSecond float64
	BurstSize         int
}

const minArtifactBytes = 100 * 1024

func loadConfig() Config {
	return Config{
		Addr:              envOrDefault("APP_ADDR", ":8001"),
		DownloadDir:       envOrDefault("DOWNLOAD_DIR", "downloads"),
		CacheDir:          envOrDefault("CACHE_DIR", "cache"),
		MaxConcurrent:     envIntOrDefault("MAX_CONCURRENT_CONVERSIONS", 10),
		QueueCapacity:     envIntOrDefault("QUEUE_CAPACITY", 100),
		Retention:         time.Duration(envIntOrDefault("FILE_EXPIRY_MINUTES", 10)) * time.Minute,
		CacheTTL:          time.Duration(envIntOrDefault("CACHE_TTL_MINUTES", 60)) * time.Minute,
		CleanupInterval:   time.Duration(envIntOrDefault("CLEANUP_INTERVAL_SECONDS", 60)) * time.Second,
		MaxAttempts:       envIntOrDefault("MAX_JOB_RETRIES", 3),
		RetryBackoff:      time.Duration(envIntOrDefault("RETRY_BACKOFF_SECONDS", 2)) * time.Second,
		AllowedDomains:    envListOrDefault("ALLOWED_DOMAINS", defaultAllowedDomains),
		YouTubeAPIKey:     os.Getenv("YOUTUBE_API_KEY"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RequestsPerSecond: float64(envIntOrDefault("REQUESTS_PER_SECOND", 100)),
		BurstSize:         envIntOrDefault("BURST_SIZE", 200),
	}
}

// bitrateFor maps a quality tier to its MP3 bitrate in kbps. Unknown tiers
// fall back to high, matching the conversion defaults.
func bitrateFor(quality string) int {
	switch quality {
	case "high":
		return 192
	case "medium":
		return 128
	case "low":
		return 96
	default:
		return 192
	}
}

func validQuality(quality string) bool {
	switch quality {
	case "high", "medium", "low":
		return true
	}
	return false
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envListOrDefault(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
