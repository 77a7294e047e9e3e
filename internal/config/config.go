package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	BackendURL         string
	PollInterval       time.Duration
	SnapshotDir        string
	RateLimitPerMinute int
	RateLimitBurst     int
	NoShowGrace        time.Duration
	NoShowInterval     time.Duration
	NoShowBatchSize    int
}

func Load() Config {
	// Optional .env next to the binary; real env always wins.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	snapshotDir := os.Getenv("SNAPSHOT_DIR")
	if snapshotDir == "" {
		snapshotDir = os.TempDir()
	}
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8080"
	}

	return Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		BackendURL:         backendURL,
		PollInterval:       readDurationSeconds("POLL_INTERVAL_SECONDS", 30),
		SnapshotDir:        snapshotDir,
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		NoShowGrace:        readDurationSeconds("NO_SHOW_GRACE_SECONDS", 0),
		NoShowInterval:     readDurationSeconds("NO_SHOW_SCAN_INTERVAL_SECONDS", 30),
		NoShowBatchSize:    readInt("NO_SHOW_BATCH_SIZE", 100),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
