package main

import (
	"context"
	"errors"
	"os"

	"github.com/tmacdonald/prefsweep/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	shared.LoadEnv()
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	if level, err := shared.ParseLogLevel(config.Logging.Level); err == nil {
		shared.SetLogLevel(logger, level)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "prefsweep",
		Usage:    "Bulk-reconfigure notification preferences across course rosters",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrRunFailed) || errors.Is(err, shared.ErrRunAborted) {
			logger.Fatalf("sweep error: %v", err)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write a starter configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "from-curl",
				Usage: "Bootstrap endpoint and credentials from a pasted cURL command",
			},
			&cli.StringFlag{
				Name:  "curl-file",
				Usage: "Bootstrap endpoint and credentials from a file containing a cURL command",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the profile settings page to generate a durable token",
			},
		},
		Action: r.Setup,
	}
}
