// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// SourceConfig points at one external table on disk.
type SourceConfig struct {
	Path string `yaml:"path"`
	// Format selects the stats parser: "csv" (default) or "html".
	// Ignored for the roster, which is always CSV.
	Format string `yaml:"format,omitempty"`
}

type SourcesConfig struct {
	Roster SourceConfig `yaml:"roster"`
	Stats  SourceConfig `yaml:"stats"`
	// Fallback serves the embedded stats dataset when the stats
	// source is missing or unreadable.
	Fallback bool `yaml:"fallback"`
}

type RefreshConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type DigestConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Schedule   string   `yaml:"schedule"`
	Recipients []string `yaml:"recipients"`
}

type EmailConfig struct {
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		// TrustProxy enables X-Forwarded-For parsing for client IPs;
		// leave off unless a reverse proxy fronts the service.
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Sources  SourcesConfig  `yaml:"sources"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Digest   DigestConfig   `yaml:"digest"`
	Email    EmailConfig    `yaml:"email"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Email.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port < 1 || c.App.Port > 65535 {
		return fmt.Errorf("app port must be between 1 and 65535")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Sources.Stats.Format {
	case "", "csv", "html":
	default:
		return fmt.Errorf("unsupported stats format: %s", c.Sources.Stats.Format)
	}

	if c.Refresh.Enabled {
		if err := validateSchedule("refresh", c.Refresh.Schedule); err != nil {
			return err
		}
		if c.Sources.Roster.Path == "" {
			return fmt.Errorf("refresh requires a roster source path")
		}
		if c.Sources.Stats.Path == "" && !c.Sources.Fallback {
			return fmt.Errorf("refresh requires a stats source path or the fallback dataset")
		}
	}

	if c.Digest.Enabled {
		if err := validateSchedule("digest", c.Digest.Schedule); err != nil {
			return err
		}
		if len(c.Digest.Recipients) == 0 {
			return fmt.Errorf("digest requires at least one recipient")
		}
		if c.Email.Sender == "" {
			return fmt.Errorf("digest requires an email sender")
		}
		if c.Email.Region == "" {
			return fmt.Errorf("digest requires an email region")
		}
	}

	return nil
}

// validateSchedule checks a five-field cron expression.
func validateSchedule(name, schedule string) error {
	if schedule == "" {
		return fmt.Errorf("%s schedule is required", name)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid %s schedule %q: %w", name, schedule, err)
	}
	return nil
}
