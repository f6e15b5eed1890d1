package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/shared"
	"github.com/tmacdonald/prefsweep/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI runs the sweep behind the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)
	opts, err := r.sweepOpts(cmd, config)
	if err != nil {
		return err
	}

	api, err := r.ensureAPI(config)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/prefsweep-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(runCtx, cancel, engine.New(api, fileLogger), opts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand returns the top-level TUI command for watching a sweep live.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Run the sweep behind an interactive dashboard",
		ArgsUsage: "[term-id...]",
		Flags:     sweepFlags(),
		Action:    r.TUI,
	}
}
