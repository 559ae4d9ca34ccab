// Package config loads cagforge configuration from the environment and an
// optional defaults file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// Canvas connection
	CanvasBaseURL  string
	CanvasAPIToken string

	// LLM fallback parsing
	LLMProvider string
	LLMModel    string
	APIKeyEnv   string
	OllamaHost  string
	LLMTimeout  time.Duration

	// Build artifacts
	FilesRoot string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		CanvasBaseURL:  getEnv("CANVAS_BASE_URL", ""),
		CanvasAPIToken: getEnv("CANVAS_API_TOKEN", ""),

		LLMProvider: getEnv("CAGFORGE_LLM_PROVIDER", ProviderOpenAI),
		LLMModel:    getEnv("CAGFORGE_LLM_MODEL", "gpt-5-mini"),
		APIKeyEnv:   getEnv("CAGFORGE_API_KEY_ENV", "OPENAI_API_KEY"),
		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		LLMTimeout:  getDuration("CAGFORGE_LLM_TIMEOUT", 2*time.Minute),

		FilesRoot: getEnv("CAGFORGE_FILES_ROOT", "/tmp/cagforge/builder"),

		LogFile:  getEnv("CAGFORGE_LOG_FILE", "/tmp/cagforge.log"),
		LogLevel: parseLogLevel(getEnv("CAGFORGE_LOG_LEVEL", "INFO")),
	}
}

// Defaults are build-request defaults that can be overridden by a
// cagforge.yaml file next to the working directory.
type Defaults struct {
	StartDate               string `yaml:"start_date"`
	EndDate                 string `yaml:"end_date"`
	DefaultDueDay           int    `yaml:"default_due_day"`
	DefaultDiscussionDueDay int    `yaml:"default_discussion_due_day"`
	DefaultLastDay          int    `yaml:"default_last_day"`
	BuildType               int    `yaml:"build_type"`
	OverviewPageTemplate    string `yaml:"overview_page_template"`
	DiscussionTemplate      string `yaml:"discussion_template"`
	AssignmentTemplate      string `yaml:"assignment_template"`
	NewQuizTemplate         string `yaml:"newquiz_template"`
	ClassicQuizTemplate     string `yaml:"classicquiz_template"`
}

// BuiltinDefaults returns the compiled-in build defaults.
func BuiltinDefaults() Defaults {
	return Defaults{
		StartDate:               "2025-08-26 00:00:00",
		EndDate:                 "2025-12-15 23:59:59",
		DefaultDueDay:           6,
		DefaultDiscussionDueDay: 3,
		DefaultLastDay:          4,
		BuildType:               2,
		OverviewPageTemplate:    "Module 1: Overview",
		DiscussionTemplate:      "Group Discussion: [Title Here]",
		AssignmentTemplate:      "Individual Assignment: [Title Here]",
		NewQuizTemplate:         "New Quiz: [Title Here]",
		ClassicQuizTemplate:     "Classic Quiz: [Title Here]",
	}
}

// LoadDefaults merges a yaml defaults file over the builtin defaults.
// A missing file is not an error; a malformed one is.
func LoadDefaults(path string) (Defaults, error) {
	d := BuiltinDefaults()
	if path == "" {
		path = "cagforge.yaml"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
