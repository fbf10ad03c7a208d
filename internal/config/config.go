package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Vault    VaultConfig    `toml:"vault"`
	Tracking TrackingConfig `toml:"tracking"`
	Reset    ResetConfig    `toml:"reset"`
	Save     SaveConfig     `toml:"save"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type VaultConfig struct {
	// Root is the directory holding the tracked documents.
	Root string `toml:"root"`
}

type TrackingConfig struct {
	// MaxIdleSeconds caps how much elapsed time a single edit can claim.
	MaxIdleSeconds int `toml:"max_idle_seconds"`
	// CountComments includes comment syntax in word counts.
	CountComments bool `toml:"count_comments"`
}

type ResetConfig struct {
	// DailyHour is the local hour (0-23) at which daily targets roll over.
	DailyHour int `toml:"daily_hour"`
	// WeeklyDay is the weekday (0=Sunday) on which weekly targets roll over.
	WeeklyDay int `toml:"weekly_day"`
}

type SaveConfig struct {
	// DebounceSeconds batches state writes behind a single timer.
	DebounceSeconds int `toml:"debounce_seconds"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug | info | warn | error
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Tracking: TrackingConfig{
			MaxIdleSeconds: 60,
			CountComments:  false,
		},
		Reset: ResetConfig{
			DailyHour: 0,
			WeeklyDay: 0,
		},
		Save: SaveConfig{
			DebounceSeconds: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if c.Tracking.MaxIdleSeconds <= 0 {
		return fmt.Errorf("tracking.max_idle_seconds must be positive, got %d", c.Tracking.MaxIdleSeconds)
	}
	if c.Reset.DailyHour < 0 || c.Reset.DailyHour > 23 {
		return fmt.Errorf("reset.daily_hour must be 0-23, got %d", c.Reset.DailyHour)
	}
	if c.Reset.WeeklyDay < 0 || c.Reset.WeeklyDay > 6 {
		return fmt.Errorf("reset.weekly_day must be 0-6, got %d", c.Reset.WeeklyDay)
	}
	if c.Save.DebounceSeconds <= 0 {
		return fmt.Errorf("save.debounce_seconds must be positive, got %d", c.Save.DebounceSeconds)
	}
	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// MaxIdle returns the idle cap as a duration.
func (c Config) MaxIdle() time.Duration {
	return time.Duration(c.Tracking.MaxIdleSeconds) * time.Second
}

// SaveDebounce returns the save debounce as a duration.
func (c Config) SaveDebounce() time.Duration {
	return time.Duration(c.Save.DebounceSeconds) * time.Second
}

// WeeklyResetDay returns the configured weekday.
func (c Config) WeeklyResetDay() time.Weekday {
	return time.Weekday(c.Reset.WeeklyDay)
}
