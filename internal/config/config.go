package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		BasePath       string   `yaml:"basePath"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		GinMode        string   `yaml:"ginMode"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Session struct {
		IdleTTL       string `yaml:"idleTTL"`
		SweepInterval string `yaml:"sweepInterval"`
	} `yaml:"session"`
	Stats struct {
		TTL string `yaml:"ttl"`
	} `yaml:"stats"`
	LLM struct {
		Provider             string `yaml:"provider"`
		Model                string `yaml:"model"`
		APIKey               string `yaml:"apiKey"`
		BaseURL              string `yaml:"baseURL"`
		Timeout              string `yaml:"timeout"`
		MaxAttempts          int    `yaml:"maxAttempts"`
		PersonalizedFeedback *bool  `yaml:"personalizedFeedback"`
	} `yaml:"llm"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error: defaults plus environment are used instead.
// A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FeedbackEnabled reports whether end-of-run personalized feedback is requested (default on).
func (c Config) FeedbackEnabled() bool {
	if c.LLM.PersonalizedFeedback == nil {
		return true
	}
	return *c.LLM.PersonalizedFeedback
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.BasePath, "BASE_PATH")
	setString(&cfg.Server.GinMode, "GIN_MODE")
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.Server.AllowedOrigins = parseOrigins(raw)
	}
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = db
	}
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Session.IdleTTL, "SESSION_IDLE_TTL")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	if cfg.LLM.Provider == "" {
		if p, k, ok := DiscoverProvider(); ok {
			cfg.LLM.Provider = p
			if cfg.LLM.APIKey == "" {
				cfg.LLM.APIKey = k
			}
		}
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
}

// providerKey looks up the conventional API key variable for provider. With no provider
// selected, the first key found decides (OpenAI first, as the service was built on it).
func providerKey(provider string) string {
	keys := map[string]string{
		"openai":     "OPENAI_API_KEY",
		"anthropic":  "ANTHROPIC_API_KEY",
		"gemini":     "GEMINI_API_KEY",
		"openrouter": "OPENROUTER_API_KEY",
	}
	if name, ok := keys[provider]; ok {
		return os.Getenv(name)
	}
	return ""
}

// DiscoverProvider picks a provider from whichever API key variable is set.
func DiscoverProvider() (provider, apiKey string, ok bool) {
	for _, p := range []string{"openai", "anthropic", "gemini", "openrouter"} {
		if k := providerKey(p); k != "" {
			return p, k, true
		}
	}
	return "", "", false
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
func parseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
