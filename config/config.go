package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Operator ids allowed to manage draws and decide withdrawals
	OperatorIDs []string

	// RunCreationSchedule is the cron expression for the daily job that
	// materializes runs from active definitions
	RunCreationSchedule string

	// Environment is "development", "production" or "test"
	Environment string
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RunCreationSchedule: "5 0 * * *", // shortly after midnight UTC
		Environment:         os.Getenv("ENVIRONMENT"),
	}

	if schedule := os.Getenv("RUN_CREATION_SCHEDULE"); schedule != "" {
		config.RunCreationSchedule = schedule
	}

	if operatorIDs := os.Getenv("OPERATOR_IDS"); operatorIDs != "" {
		for _, id := range strings.Split(operatorIDs, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				config.OperatorIDs = append(config.OperatorIDs, id)
			}
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
