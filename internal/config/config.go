package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Auth. Empty disables authentication: parsing is stateless, so the
	// service can run open behind a trusted proxy.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Batch parse fan-out
	BatchWorkers int

	// EPUB spine filtering
	MinEPUBChapterWords int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("CHAPTERIZE_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		BatchWorkers: envInt("BATCH_WORKERS", 4),

		MinEPUBChapterWords: envInt("MIN_EPUB_CHAPTER_WORDS", 50),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}
	if cfg.MinEPUBChapterWords < 0 {
		cfg.MinEPUBChapterWords = 50
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
