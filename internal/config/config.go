// Package config loads the application configuration from defaults, an
// optional TOML file and SUPPORTLOOP_-prefixed environment variables, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Paths struct {
		InputCSV  string `koanf:"input_csv"`
		Store     string `koanf:"store"`
		ExportCSV string `koanf:"export_csv"`
		EvalJSON  string `koanf:"eval_json"`
		RunLogDir string `koanf:"run_log_dir"`
	} `koanf:"paths"`

	AI struct {
		Gemini struct {
			APIKey            string  `koanf:"api_key"`
			Model             string  `koanf:"model"`
			Temperature       float64 `koanf:"temperature"`
			MaxTokens         int     `koanf:"max_tokens"`
			RequestsPerMinute int     `koanf:"requests_per_minute"`
		} `koanf:"gemini"`
	} `koanf:"ai"`

	Pipeline struct {
		CallTimeout time.Duration `koanf:"call_timeout"`
		MaxRetries  int           `koanf:"max_retries"`
		Evaluate    bool          `koanf:"evaluate"`
	} `koanf:"pipeline"`
}

var defaults = map[string]interface{}{
	"paths.input_csv":       "data/messages.csv",
	"paths.store":           "data/conversations.json",
	"paths.export_csv":      "data/recommendations.csv",
	"paths.eval_json":       "data/evaluations.json",
	"paths.run_log_dir":     "run_logs",
	"ai.gemini.model":       "gemini-2.0-flash",
	"ai.gemini.temperature": 0.0,
	"ai.gemini.max_tokens":  8192,
	"pipeline.call_timeout": "90s",
	"pipeline.max_retries":  3,
	"pipeline.evaluate":     false,
}

// LoadConfig loads the configuration. With an empty path the default
// locations are probed and a missing file is not an error; a config file
// is optional when the environment carries everything.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(defaults, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./supportloop.toml", "$HOME/.supportloop.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Double underscore separates nesting levels so keys like api_key
	// survive: SUPPORTLOOP_AI__GEMINI__API_KEY -> ai.gemini.api_key.
	k.Load(env.Provider("SUPPORTLOOP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SUPPORTLOOP_")), "__", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &config, nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# SupportLoop Configuration

[paths]
input_csv = "data/messages.csv"
store = "data/conversations.json"
export_csv = "data/recommendations.csv"
eval_json = "data/evaluations.json"
run_log_dir = "run_logs"

[ai.gemini]
api_key = "your-gemini-api-key"
model = "gemini-2.0-flash"
temperature = 0.0
max_tokens = 8192
requests_per_minute = 30

[pipeline]
call_timeout = "90s"
max_retries = 3
evaluate = false
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks the loaded configuration. A missing API key is allowed;
// the pipeline then runs without a collaborator.
func Validate(config *Config) error {
	if config.Paths.InputCSV == "" {
		return fmt.Errorf("paths.input_csv is required")
	}
	if config.Paths.Store == "" {
		return fmt.Errorf("paths.store is required")
	}
	if config.Paths.ExportCSV == "" {
		return fmt.Errorf("paths.export_csv is required")
	}
	if config.AI.Gemini.Temperature < 0 || config.AI.Gemini.Temperature > 2 {
		return fmt.Errorf("ai.gemini.temperature must be between 0 and 2")
	}
	if config.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative")
	}
	return nil
}
