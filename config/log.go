package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. Level comes from the
// loaded config when present, LOG_LEVEL otherwise; defaults to info.
func InitLogger() {
	level := os.Getenv("LOG_LEVEL")
	if GlobalConfig != nil && GlobalConfig.LogLevel != "" {
		level = GlobalConfig.LogLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
