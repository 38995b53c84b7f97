package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Backend generative-language API
	GeminiAPIKey   string
	GeminiBaseURL  string
	Models         []string
	AttemptTimeout time.Duration

	// CORS
	AllowedOrigins []string
	DefaultOrigin  string

	// Client history persistence (cmd/chat)
	HistoryBackend string
	HistoryDBPath  string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

func Load() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	models := splitList(os.Getenv("GEMINI_MODELS"))
	if len(models) == 0 {
		models = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-flash-8b"}
	}

	attemptTimeout := 20 * time.Second
	if v := os.Getenv("GEMINI_ATTEMPT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attemptTimeout = time.Duration(n) * time.Second
		}
	}

	origins := splitList(os.Getenv("ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"https://mhoward.dev", "https://www.mhoward.dev"}
	}

	defaultOrigin := os.Getenv("DEFAULT_ORIGIN")
	if defaultOrigin == "" {
		defaultOrigin = origins[0]
	}

	backend := os.Getenv("HISTORY_BACKEND")
	if backend == "" {
		backend = "sqlite"
	}

	dbPath := os.Getenv("HISTORY_DB_PATH")
	if dbPath == "" {
		dbPath = "chat_history.db"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return Config{
		Addr: addr,

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:  baseURL,
		Models:         models,
		AttemptTimeout: attemptTimeout,

		AllowedOrigins: origins,
		DefaultOrigin:  defaultOrigin,

		HistoryBackend: backend,
		HistoryDBPath:  dbPath,
		RedisAddr:      redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
