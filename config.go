package openrouter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvAPIKey is the environment variable consulted for the API key when the
// config file does not carry one.
const EnvAPIKey = "OPENROUTER_API_KEY"

// ModelsConfig selects which models a tool built on this client should
// expose. Entries in Enable may name a model directly or reference a
// preset as "preset:<name>".
type ModelsConfig struct {
	Enable  []string            `yaml:"enable"`
	Presets map[string][]string `yaml:"presets"`
}

// Config is the explicit client configuration. It is a plain value passed
// into NewClientFromConfig by the caller; nothing in this package holds
// global configuration state.
type Config struct {
	APIKey       string       `yaml:"api_key"`
	BaseURL      string       `yaml:"base_url"`
	DefaultModel string       `yaml:"default_model"`
	Models       ModelsConfig `yaml:"models"`
}

// DefaultConfig returns the built-in configuration with the stock model
// presets.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		DefaultModel: "deepseek/deepseek-chat-v3-0324:free",
		Models: ModelsConfig{
			Enable: []string{"preset:programming"},
			Presets: map[string][]string{
				"programming": {
					"anthropic/claude-sonnet-4",
					"google/gemini-2.5-flash",
					"qwen/qwen3-coder",
				},
				"reasoning": {
					"anthropic/claude-sonnet-4",
					"deepseek/deepseek-r1:free",
					"openai/gpt-5",
				},
				"free": {
					"deepseek/deepseek-chat-v3-0324:free",
					"deepseek/deepseek-r1:free",
				},
			},
		},
	}
}

// LoadConfig reads a YAML config file and applies environment overrides.
// A missing file is reported via ErrConfigNotFound so callers can fall
// back to DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Path: path, Reason: "file not found", Err: ErrConfigNotFound}
		}
		return nil, &ConfigError{Path: path, Reason: err.Error(), Err: err}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment supply the API key so keys can stay out of
// checked-in config files.
func (c *Config) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		c.APIKey = key
	}
}

// EnabledModels resolves the Enable list, expanding "preset:" references
// against the named presets. Unknown presets resolve to nothing; duplicate
// models are collapsed, first occurrence wins.
func (c *Config) EnabledModels() []string {
	seen := make(map[string]bool)
	var models []string

	add := func(model string) {
		if model == "" || seen[model] {
			return
		}
		seen[model] = true
		models = append(models, model)
	}

	for _, entry := range c.Models.Enable {
		if name, ok := strings.CutPrefix(entry, "preset:"); ok {
			for _, model := range c.Models.Presets[name] {
				add(model)
			}
			continue
		}
		add(entry)
	}
	return models
}
