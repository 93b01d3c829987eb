// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tutor-agent/internal/domain"
)

// Config holds every tunable the Lambda reads at cold start.
type Config struct {
	Environment string `validate:"oneof=dev prod ci"`
	ParamPrefix string `validate:"required"`
	LedgerTable string `validate:"required"`

	OpenAIModel       string  `validate:"required"`
	OpenAIMaxTokens   int     `validate:"gt=0"`
	OpenAITemperature float64 `validate:"gte=0,lte=2"`
	OpenAIBaseURL     string  `validate:"omitempty,url"`

	SupportedLanguages []domain.Language `validate:"min=1,dive,oneof=english ukrainian polish german"`

	ChatContextTurns  int `validate:"gt=0"`
	StartContextTurns int `validate:"gt=0"`
	MaxContextTurns   int `validate:"gt=0"`
	MaxRequestSizeMB  int `validate:"gt=0"`

	LogLevel string `validate:"oneof=DEBUG INFO WARNING WARN ERROR CRITICAL"`
}

// MaxRequestBytes is the request body limit in bytes.
func (c Config) MaxRequestBytes() int {
	return c.MaxRequestSizeMB * 1024 * 1024
}

var validate = validator.New()

// Load builds a Config from getenv, applying defaults for unset keys.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		return Config{}, errors.New("config: getenv must not be nil")
	}
	r := reader{getenv: getenv}

	cfg := Config{
		Environment:        strings.ToLower(r.str("ENVIRONMENT", "dev")),
		ParamPrefix:        r.str("PARAM_PREFIX", ""),
		LedgerTable:        r.str("LEDGER_TABLE", ""),
		OpenAIModel:        r.str("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:    r.int("OPENAI_MAX_TOKENS", 500),
		OpenAITemperature:  r.float("OPENAI_TEMPERATURE", 0.7),
		OpenAIBaseURL:      r.str("OPENAI_BASE_URL", ""),
		SupportedLanguages: r.languages("SUPPORTED_LANGUAGES", domain.Languages),
		ChatContextTurns:   r.int("CONTEXT_CHAT_MESSAGES_NUM", 20),
		StartContextTurns:  r.int("CONTEXT_START_MESSAGES_NUM", 10),
		MaxContextTurns:    r.int("MAX_CONTEXT_MESSAGES", 100),
		MaxRequestSizeMB:   r.int("MAX_REQUEST_SIZE_MB", 1),
		LogLevel:           strings.ToUpper(r.str("LOG_LEVEL", "INFO")),
	}
	if len(r.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(r.errs...))
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// reader collects parse errors so Load can report all of them at once.
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	return v
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (r *reader) languages(key string, def []domain.Language) []domain.Language {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return append([]domain.Language(nil), def...)
	}
	var out []domain.Language
	seen := make(map[domain.Language]bool)
	for _, part := range strings.Split(v, ",") {
		lang := domain.Language(strings.ToLower(strings.TrimSpace(part)))
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}
