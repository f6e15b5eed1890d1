// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// sweepFlags are the knobs shared by every command that drives a traversal.
// Unset flags fall back to the configuration file, then to engine defaults.
func sweepFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:    "frequency",
			Aliases: []string{"f"},
			Usage:   "Target frequency: never, immediately, daily or weekly",
		},
		&cli.StringSliceFlag{
			Name:    "role",
			Aliases: []string{"r"},
			Usage:   "Enrollment role in scope, repeatable",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "Notification category to leave untouched, repeatable",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Parallel update calls",
		},
		&cli.IntFlag{
			Name:  "attempts",
			Usage: "Attempts per update before a transient failure is terminal",
		},
		&cli.IntFlag{
			Name:  "backoff",
			Usage: "Base retry backoff in seconds, doubling per attempt",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Per-call timeout in seconds",
		},
		&cli.FloatFlag{
			Name:  "rate",
			Usage: "API request budget per second",
		},
		&cli.IntFlag{
			Name:  "account",
			Usage: "Administrative account id",
		},
		&cli.BoolFlag{
			Name:  "include-current",
			Usage: "Update categories already at the target frequency",
		},
	}
}

// runCommand performs the sweep itself.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Reconfigure notification preferences for every matching user",
		ArgsUsage: "[term-id...]",
		Flags: append(sweepFlags(),
			&cli.StringFlag{
				Name:  "failures",
				Usage: "Write failure details to this CSV path",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "Send the summary to the configured Telegram chat",
			},
		),
		Action: r.Sweep,
	}
}

// targetsCommand previews a sweep's population.
func targetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "targets",
		Aliases:   []string{"ls"},
		Usage:     "List the users a sweep would touch without updating anything",
		ArgsUsage: "[term-id...]",
		Flags: append(sweepFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the target list as JSON",
			},
		),
		Action: r.Targets,
	}
}

// scheduleCommand reruns the sweep on a cron spec.
func scheduleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Usage:     "Run the sweep on a cron schedule until interrupted",
		ArgsUsage: "[term-id...]",
		Flags: append(sweepFlags(),
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Standard five-field cron spec",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "notify",
				Usage: "Send each run's summary to the configured Telegram chat",
			},
		),
		Action: r.Schedule,
	}
}
