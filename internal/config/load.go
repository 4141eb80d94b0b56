package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Load: .env 및 환경변수로 설정을 구성합니다.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv_load_failed", "error", err)
	}

	cfg := &Config{
		Gemini: GeminiConfig{
			APIKeys:         loadAPIKeys(),
			DefaultModel:    envString("GEMINI_MODEL", "gemini-3-flash-preview"),
			ExtractModel:    envString("GEMINI_EXTRACT_MODEL", ""),
			RecommendModel:  envString("GEMINI_RECOMMEND_MODEL", ""),
			ChatModel:       envString("GEMINI_CHAT_MODEL", ""),
			Temperature:     envFloat("GEMINI_TEMPERATURE", 1.0),
			MaxOutputTokens: envInt("GEMINI_MAX_OUTPUT_TOKENS", 4096),
			Thinking: ThinkingConfig{
				LevelDefault:   envString("GEMINI_THINKING_LEVEL", "low"),
				LevelExtract:   envString("GEMINI_THINKING_LEVEL_EXTRACT", "low"),
				LevelRecommend: envString("GEMINI_THINKING_LEVEL_RECOMMEND", "low"),
				LevelChat:      envString("GEMINI_THINKING_LEVEL_CHAT", "low"),
			},
			TimeoutSeconds: envInt("GEMINI_TIMEOUT_SECONDS", 120),
		},
		Upload: UploadConfig{
			MaxSizeMB: envInt("UPLOAD_MAX_SIZE_MB", 15),
		},
		Session: SessionConfig{
			SessionTTLMinutes: envInt("SESSION_TTL_MINUTES", 720),
			HistoryMaxPairs:   envInt("SESSION_HISTORY_MAX_PAIRS", 40),
		},
		SessionStore: SessionStoreConfig{
			URL:          envString("VALKEY_URL", ""),
			Enabled:      envBool("VALKEY_ENABLED", true),
			Required:     envBool("VALKEY_REQUIRED", false),
			DisableCache: envBool("VALKEY_DISABLE_CACHE", false),
		},
		Guard: GuardConfig{
			Enabled:         envBool("GUARD_ENABLED", true),
			Threshold:       envFloat("GUARD_THRESHOLD", 0.8),
			RulepacksDir:    envString("GUARD_RULEPACKS_DIR", "rulepacks"),
			CacheMaxSize:    envInt("GUARD_CACHE_MAX_SIZE", 2048),
			CacheTTLSeconds: envInt("GUARD_CACHE_TTL_SECONDS", 600),
		},
		Logging: LoggingConfig{
			Level:      envString("LOG_LEVEL", "info"),
			LogDir:     envString("LOG_DIR", "logs"),
			MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
			MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 14),
			Compress:   envBool("LOG_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         envString("HTTP_HOST", "0.0.0.0"),
			Port:         envInt("HTTP_PORT", 8000),
			HTTP2Enabled: envBool("HTTP_HTTP2_ENABLED", true),
		},
		CORS: CORSConfig{
			AllowOrigins: envStringList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		HTTPAuth: HTTPAuthConfig{
			APIKey: envString("HTTP_API_KEY", ""),
		},
		HTTPRateLimit: HTTPRateLimitConfig{
			RequestsPerMinute: envInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
			CacheSize:         envInt("HTTP_RATE_LIMIT_CACHE_SIZE", 4096),
			CacheTTLSeconds:   envInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120),
		},
		Database: DatabaseConfig{
			Host:                                 envString("DB_HOST", "localhost"),
			Port:                                 envInt("DB_PORT", 5432),
			Name:                                 envString("DB_NAME", "ecosync"),
			User:                                 envString("DB_USER", "ecosync"),
			Password:                             envString("DB_PASSWORD", ""),
			MinPool:                              envInt("DB_MIN_POOL", 2),
			MaxPool:                              envInt("DB_MAX_POOL", 10),
			ConnMaxLifetimeMinutes:               envInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),
			ConnMaxIdleTimeMinutes:               envInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
			UsageBatchEnabled:                    envBool("DB_USAGE_BATCH_ENABLED", true),
			UsageBatchFlushIntervalSeconds:       envInt("DB_USAGE_BATCH_FLUSH_INTERVAL_SECONDS", 5),
			UsageBatchFlushTimeoutSeconds:        envInt("DB_USAGE_BATCH_FLUSH_TIMEOUT_SECONDS", 10),
			UsageBatchMaxPendingRequests:         envInt("DB_USAGE_BATCH_MAX_PENDING", 512),
			UsageBatchMaxBackoffSeconds:          envInt("DB_USAGE_BATCH_MAX_BACKOFF_SECONDS", 60),
			UsageBatchErrorLogMaxIntervalSeconds: envInt("DB_USAGE_BATCH_ERROR_LOG_MAX_INTERVAL_SECONDS", 300),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate: 필수 설정값을 검증합니다.
func (c *Config) Validate() error {
	if len(c.Gemini.APIKeys) == 0 {
		return fmt.Errorf("GOOGLE_API_KEY or GOOGLE_API_KEYS is required")
	}
	for _, model := range []string{
		c.Gemini.DefaultModel, c.Gemini.ExtractModel, c.Gemini.RecommendModel, c.Gemini.ChatModel,
	} {
		if model != "" && !isGemini3(model) {
			return fmt.Errorf("unsupported gemini model: %s", model)
		}
	}
	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE_MB must be positive")
	}
	if c.Session.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.Session.HistoryMaxPairs <= 0 {
		return fmt.Errorf("SESSION_HISTORY_MAX_PAIRS must be positive")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port)
	}
	return nil
}

func isGemini3(model string) bool {
	return strings.Contains(model, "gemini-3")
}

// LogEnvStatus: 기동 시 주요 설정 상태를 기록합니다.
func (c *Config) LogEnvStatus() {
	slog.Info("config_loaded",
		"gemini_keys", len(c.Gemini.APIKeys),
		"gemini_model", c.Gemini.DefaultModel,
		"upload_max_mb", c.Upload.MaxSizeMB,
		"session_ttl_minutes", c.Session.SessionTTLMinutes,
		"valkey_enabled", c.SessionStore.Enabled,
		"valkey_url", maskSecret(c.SessionStore.URL),
		"guard_enabled", c.Guard.Enabled,
		"http_port", c.HTTP.Port,
		"cors_allow_all", c.CORS.AllowAll(),
		"db_host", c.Database.Host,
	)
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
