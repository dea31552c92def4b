package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Idle monitor configuration
	Idle IdleConfig

	// Session export configuration
	Export ExportConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Report configuration
	Report ReportConfig

	// Web server configuration
	Web WebConfig

	// File is the config file this configuration was read from, if any
	File string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// IdleConfig holds pointer sampling configuration
type IdleConfig struct {
	SampleInterval    time.Duration // How often to sample the pointer while idle
	MinSampleInterval time.Duration // Minimum allowed sample interval
	MaxSampleInterval time.Duration // Maximum allowed sample interval
}

// ExportConfig holds session export configuration
type ExportConfig struct {
	OutputPath string // CSV destination, relative to the working directory unless absolute
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/presence/presence.db
		},
		Idle: IdleConfig{
			SampleInterval:    10 * time.Second,
			MinSampleInterval: 1 * time.Second,
			MaxSampleInterval: 300 * time.Second,
		},
		Export: ExportConfig{
			OutputPath: "output.csv",
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/presence-%d.pid", os.Getuid()),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(), // Default port based on user ID
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Idle.SampleInterval < c.Idle.MinSampleInterval {
		return fmt.Errorf("sample interval (%v) cannot be less than minimum (%v)",
			c.Idle.SampleInterval, c.Idle.MinSampleInterval)
	}

	if c.Idle.SampleInterval > c.Idle.MaxSampleInterval {
		return fmt.Errorf("sample interval (%v) cannot be greater than maximum (%v)",
			c.Idle.SampleInterval, c.Idle.MaxSampleInterval)
	}

	if c.Export.OutputPath == "" {
		return fmt.Errorf("export output path cannot be empty")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetSampleInterval sets the sample interval with validation
func (c *Config) SetSampleInterval(interval time.Duration) error {
	if interval < c.Idle.MinSampleInterval {
		return fmt.Errorf("sample interval cannot be less than %v", c.Idle.MinSampleInterval)
	}
	if interval > c.Idle.MaxSampleInterval {
		return fmt.Errorf("sample interval cannot be greater than %v", c.Idle.MaxSampleInterval)
	}
	c.Idle.SampleInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location resolves the report time zone
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid report time zone %q: %w", c.Report.TimeZone, err)
	}
	return loc, nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  File: %s
  Database:
    Path: %s
  Idle:
    Sample Interval: %v
    Min Interval: %v
    Max Interval: %v
  Export:
    Output Path: %s
  Daemon:
    PID File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d`,
		c.File,
		c.Database.Path,
		c.Idle.SampleInterval,
		c.Idle.MinSampleInterval,
		c.Idle.MaxSampleInterval,
		c.Export.OutputPath,
		c.Daemon.PIDFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
	)
}
