package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("env_parse_failed", "key", key, "value", v, "error", err)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		slog.Warn("env_parse_failed", "key", key, "value", v, "error", err)
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("env_parse_failed", "key", key, "value", v, "error", err)
		return fallback
	}
	return b
}

func envStringList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
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

// loadAPIKeys: GOOGLE_API_KEYS(콤마 구분) 또는 GOOGLE_API_KEY에서 키 목록을 읽습니다.
func loadAPIKeys() []string {
	if multi := envString("GOOGLE_API_KEYS", ""); multi != "" {
		return envStringList("GOOGLE_API_KEYS", nil)
	}
	if single := envString("GOOGLE_API_KEY", ""); single != "" {
		return []string{single}
	}
	return nil
}
