package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"pdfchat-quiz/internal/models"
)

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	UnmarkedReject = "reject"
	UnmarkedRandom = "random"
)

// LLMConfig describes one upstream model endpoint. Key is never read from
// the file; it is resolved from the environment variable named by KeyEnv.
type LLMConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=googleai openai ollama"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model" validate:"required"`
	KeyEnv      string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gt=0"`
	Key         string `yaml:"-"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap   int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK           int    `yaml:"top_k" validate:"gt=0"`
	IndexDir       string `yaml:"index_dir" validate:"required"`
	CollectionName string `yaml:"collection_name" validate:"required"`
	Compress       bool   `yaml:"compress"`
	EmbedBatchSize int    `yaml:"embed_batch_size" validate:"gt=0"`
}

type AnswerConfig struct {
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type QuizConfig struct {
	Temperature       float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxSourceChars    int     `yaml:"max_source_chars" validate:"gt=0"`
	DefaultCount      int     `yaml:"default_count" validate:"gt=0"`
	DefaultDifficulty string  `yaml:"default_difficulty" validate:"oneof=Easy Medium Hard"`
	UnmarkedPolicy    string  `yaml:"unmarked_policy" validate:"oneof=reject random"`
}

type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" validate:"gt=0"`
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

type Config struct {
	LLM      LLMConfig     `yaml:"llm"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	RAG      RAGConfig     `yaml:"rag"`
	Answer   AnswerConfig  `yaml:"answer"`
	Quiz     QuizConfig    `yaml:"quiz"`
	Session  SessionConfig `yaml:"session"`
	Log      LogConfig     `yaml:"log"`
}

// Default returns the Gemini based configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderGoogleAI,
			Model:       "gemini-1.5-flash",
			KeyEnv:      "GOOGLE_API_KEY",
			TimeoutSecs: 60,
		},
		EmbedLLM: LLMConfig{
			Provider:    ProviderGoogleAI,
			Model:       "embedding-001",
			KeyEnv:      "GOOGLE_API_KEY",
			TimeoutSecs: 60,
		},
		RAG: RAGConfig{
			ChunkSize:      10000,
			ChunkOverlap:   200,
			TopK:           4,
			IndexDir:       "./index",
			CollectionName: "documents",
			EmbedBatchSize: 32,
		},
		Answer: AnswerConfig{Temperature: 0.3},
		Quiz: QuizConfig{
			Temperature:       0.7,
			MaxSourceChars:    50000,
			DefaultCount:      5,
			DefaultDifficulty: string(models.DifficultyMedium),
			UnmarkedPolicy:    UnmarkedReject,
		},
		Session: SessionConfig{TTLMinutes: 60},
		Log:     LogConfig{Level: "debug", MaxSizeMB: 10, MaxBackups: 5},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error. Variables from a .env file in the working directory
// are loaded before API keys are resolved.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Str("path", path).Msg("Config file not found, using defaults")
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &models.ConfigError{Field: path, Reason: "malformed yaml", Err: err}
			}
		}
	}

	cfg.LLM.Key = resolveKey(cfg.LLM)
	cfg.EmbedLLM.Key = resolveKey(cfg.EmbedLLM)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveKey(c LLMConfig) string {
	if c.KeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.KeyEnv))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every keyed provider has its
// API key. Any failure is returned as a *models.ConfigError.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &models.ConfigError{
				Field:  fe.Namespace(),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
				Err:    err,
			}
		}
		return &models.ConfigError{Field: "config", Reason: "validation failed", Err: err}
	}

	endpoints := []struct {
		name string
		cfg  LLMConfig
	}{{"llm", cfg.LLM}, {"embed_llm", cfg.EmbedLLM}}
	for _, e := range endpoints {
		c := e.cfg
		if c.Provider == ProviderOllama {
			continue
		}
		if c.Key == "" {
			return &models.ConfigError{
				Field:  e.name + ".api_key_env",
				Reason: fmt.Sprintf("API key not found, set %s in the environment or .env file", c.KeyEnv),
			}
		}
	}
	return nil
}
