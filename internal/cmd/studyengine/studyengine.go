// Package studyengine parses study engine flags and launches the service.
package studyengine

import (
	"context"
	"flag"

	entrypoint "github.com/StanNowak/Surveys/internal/platform/cmd"
	server "github.com/StanNowak/Surveys/internal/services/study/app"
)

// Config holds study engine command configuration.
type Config struct {
	Port int `env:"SURVEYS_PORT" envDefault:"8000"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The study engine HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the study engine HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStudyEngine, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
