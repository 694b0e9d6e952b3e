package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Telegram TelegramConfig
	Storage  StorageConfig
	Search   SearchConfig
	Cleanup  CleanupConfig
	Server   ServerConfig
	API      APIConfig
	Log      LogConfig
	Help     HelpConfig
}

type TelegramConfig struct {
	Token    string
	AdminIDs []int64
	// ProbeChatID is where source messages are forwarded to check they still
	// exist. Zero disables the check.
	ProbeChatID  int64
	PollTimeout  time.Duration
	SearchOnText bool
}

type StorageConfig struct {
	DataDir string
}

type SearchConfig struct {
	PageSize int
	AdLimit  int
}

type CleanupConfig struct {
	Delay        time.Duration
	PollInterval time.Duration
}

type ServerConfig struct {
	Port int
}

type APIConfig struct {
	Token string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type HelpConfig struct {
	Default string
}

func defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			PollTimeout:  10 * time.Second,
			SearchOnText: true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Search: SearchConfig{
			PageSize: 10,
			AdLimit:  5,
		},
		Cleanup: CleanupConfig{
			Delay:        10 * time.Second,
			PollInterval: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, then the YAML file at
// $XDG_CONFIG_HOME/shelfbot/config.yaml, then SHELFBOT_* environment
// variables. Secrets are read from the environment only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// ValidateBot reports settings that make running the bot impossible.
func (c Config) ValidateBot() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, fmt.Errorf("missing required config: telegram bot token. Set it via environment variable SHELFBOT_TELEGRAM_TOKEN"))
	}
	if len(c.Telegram.AdminIDs) == 0 {
		errs = append(errs, fmt.Errorf("no admins configured: set telegram.admin_ids or SHELFBOT_TELEGRAM_ADMIN_IDS"))
	}
	if c.Search.PageSize < 1 {
		errs = append(errs, fmt.Errorf("search.page_size must be at least 1, got %d", c.Search.PageSize))
	}
	return errors.Join(errs...)
}
