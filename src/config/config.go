package config

import (
	"fmt"
	"os"

	"enrollment-observer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills in unset detection/scan values with the engine defaults.
func (c *Config) applyDefaults() {
	if c.Detection.MetricName == "" {
		c.Detection.MetricName = "daily_enrollments"
	}
	if c.Detection.LookbackDays == 0 {
		c.Detection.LookbackDays = 90
	}
	if c.Detection.ZScoreThreshold == 0 {
		c.Detection.ZScoreThreshold = 3.0
	}
	if c.Detection.RollingWindow == 0 {
		c.Detection.RollingWindow = 30
	}
	if c.Detection.RollingDeviationThreshold == 0 {
		c.Detection.RollingDeviationThreshold = 0.5
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 4
	}
	if c.Scan.AlertRetentionDays == 0 {
		c.Scan.AlertRetentionDays = 365
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Detection configuration
	if c.Detection.LookbackDays < 3 {
		return fmt.Errorf("lookback days must be at least 3, got %d", c.Detection.LookbackDays)
	}
	if c.Detection.ZScoreThreshold <= 0 {
		return fmt.Errorf("z-score threshold must be greater than 0")
	}
	if c.Detection.RollingWindow < 2 {
		return fmt.Errorf("rolling window must be at least 2, got %d", c.Detection.RollingWindow)
	}
	if c.Detection.RollingDeviationThreshold <= 0 || c.Detection.RollingDeviationThreshold >= 1 {
		return fmt.Errorf("rolling deviation threshold must be in (0, 1), got %f", c.Detection.RollingDeviationThreshold)
	}

	// Validate Scan configuration
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan workers must be greater than 0")
	}
	if c.Scan.ScheduledHourUTC < 0 || c.Scan.ScheduledHourUTC > 23 {
		return fmt.Errorf("scheduled hour must be between 0 and 23, got %d", c.Scan.ScheduledHourUTC)
	}
	if c.Scan.AlertRetentionDays <= 0 {
		return fmt.Errorf("alert retention days must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
