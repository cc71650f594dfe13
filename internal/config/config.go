package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
)

type Config struct {
	CocAPIToken   string
	DBPath        string
	ServerPort    string
	ExportDir     string
	SchedulerSpec string
	SchedulerOn   bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		CocAPIToken:   getEnv("COC_API_TOKEN", ""),
		DBPath:        getEnv("DB_PATH", "cwlbot.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		ExportDir:     getEnv("EXPORT_DIR", "exports"),
		SchedulerSpec: getEnv("SCHEDULER_SPEC", constants.SchedulerTickSpec),
		SchedulerOn:   getEnvBool("SCHEDULER_ENABLED", true),
	}

	if cfg.CocAPIToken == "" {
		return nil, fmt.Errorf("COC_API_TOKEN is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("export_dir", cfg.ExportDir).
		Str("scheduler_spec", cfg.SchedulerSpec).
		Bool("scheduler_enabled", cfg.SchedulerOn).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}
