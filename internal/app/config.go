package app

import (
	"github.com/applyforge/applyforge-backend/internal/platform/envutil"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

type Config struct {
	ServiceName        string
	Environment        string
	Version            string
	Port               string
	RateLimitRulesPath string
	RateLimitBackend   string
	CoverLetterTone    string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		ServiceName:        envutil.GetEnv("SERVICE_NAME", "applyforge", log),
		Environment:        envutil.GetEnv("ENVIRONMENT", "development", log),
		Version:            envutil.GetEnv("SERVICE_VERSION", "dev", log),
		Port:               envutil.GetEnv("PORT", "8080", log),
		RateLimitRulesPath: envutil.GetEnv("RATE_LIMIT_RULES_PATH", "", log),
		RateLimitBackend:   envutil.GetEnv("RATE_LIMIT_BACKEND", "memory", log),
		CoverLetterTone:    envutil.GetEnv("DEFAULT_COVER_LETTER_TONE", "professional", log),
	}
}
