package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of a config file. Zero values leave the
// corresponding setting untouched.
type fileConfig struct {
	Database struct {
		Path string `toml:"path" yaml:"path"`
	} `toml:"database" yaml:"database"`

	Idle struct {
		SampleInterval string `toml:"sample_interval" yaml:"sample_interval"`
	} `toml:"idle" yaml:"idle"`

	Export struct {
		OutputPath string `toml:"output_path" yaml:"output_path"`
	} `toml:"export" yaml:"export"`

	Daemon struct {
		PIDFile string `toml:"pid_file" yaml:"pid_file"`
	} `toml:"daemon" yaml:"daemon"`

	Report struct {
		TimeZone string `toml:"timezone" yaml:"timezone"`
	} `toml:"report" yaml:"report"`

	Web struct {
		Host string `toml:"host" yaml:"host"`
		Port int    `toml:"port" yaml:"port"`
	} `toml:"web" yaml:"web"`
}

// LoadFile applies a TOML (.toml) or YAML (.yaml, .yml) config file on top of cfg
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parse YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	if fc.Idle.SampleInterval != "" {
		interval, err := time.ParseDuration(fc.Idle.SampleInterval)
		if err != nil {
			return fmt.Errorf("invalid idle.sample_interval %q: %w", fc.Idle.SampleInterval, err)
		}
		cfg.Idle.SampleInterval = interval
	}

	if fc.Database.Path != "" {
		cfg.Database.Path = fc.Database.Path
	}
	if fc.Export.OutputPath != "" {
		cfg.Export.OutputPath = fc.Export.OutputPath
	}
	if fc.Daemon.PIDFile != "" {
		cfg.Daemon.PIDFile = fc.Daemon.PIDFile
	}
	if fc.Report.TimeZone != "" {
		cfg.Report.TimeZone = fc.Report.TimeZone
	}
	if fc.Web.Host != "" {
		cfg.Web.Host = fc.Web.Host
	}
	if fc.Web.Port != 0 {
		cfg.Web.Port = fc.Web.Port
	}

	cfg.File = path
	return nil
}
