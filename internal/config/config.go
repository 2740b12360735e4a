// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crickmate/coach/internal/intent"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	FrontendURL         string
	DBPath              string
	DispatchMode        string
	KnowledgeDir        string
	MaxRequestBodyBytes int64
	Session             SessionConfig
	Classifier          ClassifierConfig
	RateLimit           RateLimitConfig
	ConversationLog     ConversationLogConfig
}

// SessionConfig controls the in-memory session store lifecycle.
type SessionConfig struct {
	IdleTTL       time.Duration // 0 keeps sessions for the life of the process
	SweepInterval time.Duration
}

// ClassifierConfig selects the optional intent classifier backend.
type ClassifierConfig struct {
	GRPCAddr  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// RateLimitConfig bounds chat requests per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	MaxOpenFiles  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		DBPath:              getEnv("DB_PATH", "./data/crickmate.db"),
		DispatchMode:        strings.ToLower(strings.TrimSpace(getEnv("DISPATCH_MODE", "segmented"))),
		KnowledgeDir:        getEnv("KNOWLEDGE_DIR", "./knowledge_base"),
		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		Session: SessionConfig{
			IdleTTL:       getEnvDuration("SESSION_IDLE_TTL", 0),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Classifier: ClassifierConfig{
			GRPCAddr:  getEnv("CLASSIFIER_GRPC_ADDR", ""),
			APIKey:    getEnv("GOOGLE_API_KEY", ""),
			Model:     getEnv("INTENT_MODEL", "gemini-2.5-flash"),
			Timeout:   getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
			CacheSize: getEnvInt("CLASSIFIER_CACHE_SIZE", 512),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
			MaxOpenFiles:  getEnvInt("CONVERSATION_LOG_MAX_OPEN_FILES", 64),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.DispatchMode {
	case "segmented", "assisted":
	default:
		return fmt.Errorf("DISPATCH_MODE must be segmented or assisted, got %q", c.DispatchMode)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL cannot be negative")
	}
	if c.Session.IdleTTL > 0 && c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0 when SESSION_IDLE_TTL is set")
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be > 0")
	}
	if c.Classifier.CacheSize < 0 {
		return fmt.Errorf("CLASSIFIER_CACHE_SIZE cannot be negative")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.ConversationLog.MaxOpenFiles <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_MAX_OPEN_FILES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// IntentOptions maps the classifier settings to intent.Options.
func (c *Config) IntentOptions() intent.Options {
	return intent.Options{
		GRPCAddr:  c.Classifier.GRPCAddr,
		APIKey:    c.Classifier.APIKey,
		Model:     c.Classifier.Model,
		Timeout:   c.Classifier.Timeout,
		CacheSize: c.Classifier.CacheSize,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
