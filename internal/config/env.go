package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	if dbPath := os.Getenv("PRESENCE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if sampleInterval := os.Getenv("PRESENCE_SAMPLE_INTERVAL"); sampleInterval != "" {
		if seconds, err := strconv.Atoi(sampleInterval); err == nil && seconds > 0 {
			interval := time.Duration(seconds) * time.Second
			if interval >= cfg.Idle.MinSampleInterval && interval <= cfg.Idle.MaxSampleInterval {
				cfg.Idle.SampleInterval = interval
			}
		}
	}

	if outputPath := os.Getenv("PRESENCE_OUTPUT_PATH"); outputPath != "" {
		cfg.Export.OutputPath = outputPath
	}

	if pidFile := os.Getenv("PRESENCE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if timeZone := os.Getenv("PRESENCE_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	if webHost := os.Getenv("PRESENCE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("PRESENCE_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config from defaults, a .env file in the working
// directory, the file named by PRESENCE_CONFIG and the environment, in that
// order of increasing precedence
func New() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env file: %v", err)
	}

	cfg := Default()

	if path := os.Getenv("PRESENCE_CONFIG"); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			log.Printf("Failed to load config file: %v", err)
		}
	}

	LoadFromEnv(cfg)
	return cfg
}
