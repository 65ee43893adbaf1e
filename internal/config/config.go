package config

import (
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDSN         string
	HTTPAddr      string
	LogLevel      string
	RedisDSN      string
	PublicBaseURL string

	// raw secrets kept in-memory only; never log these
	SteamAPIKey       string
	SessionKeyRaw     string
	SessionKey        []byte // decoded from SessionKeyRaw
	CORSOrigins       []string

	// object storage for mirrored artwork (optional)
	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3PublicURL string

	// background resync worker
	WorkerInterval    time.Duration
	WorkerBatchSize   int
	SyncFanoutLimit   int
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:         os.Getenv("DB_DSN"),
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
		RedisDSN:      getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		PublicBaseURL: getenvDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		SteamAPIKey:   os.Getenv("STEAM_API_KEY"),
		S3Endpoint:    getenvDefault("S3_ENDPOINT", ""),
		S3Bucket:      getenvDefault("S3_BUCKET", ""),
		S3Region:      getenvDefault("S3_REGION", "auto"),
		S3PublicURL:   getenvDefault("S3_PUBLIC_URL", ""),
	}

	cfg.SessionKeyRaw = os.Getenv("SESSION_ENCRYPTION_KEY")

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}
	if cfg.SteamAPIKey == "" {
		return Config{}, errors.New("missing STEAM_API_KEY")
	}

	// decode session key (base64, must be 32 bytes)
	if cfg.SessionKeyRaw != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.SessionKeyRaw)
		if err != nil {
			return Config{}, errors.New("SESSION_ENCRYPTION_KEY must be valid base64")
		}
		if len(key) != 32 {
			return Config{}, errors.New("SESSION_ENCRYPTION_KEY must be 32 bytes (256 bits)")
		}
		cfg.SessionKey = key
	}

	// parse CORS origins
	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000"} // default
	}

	cfg.WorkerInterval = getenvDuration("WORKER_INTERVAL", 15*time.Minute)
	cfg.WorkerBatchSize = getenvInt("WORKER_BATCH_SIZE", 25)
	cfg.SyncFanoutLimit = getenvInt("SYNC_FANOUT_LIMIT", 10)
	if cfg.SyncFanoutLimit < 1 {
		return Config{}, errors.New("SYNC_FANOUT_LIMIT must be >= 1")
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
