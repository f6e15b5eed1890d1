// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for a preference sweep:
//  1. [ConfirmView] : Review the sweep parameters before anything runs
//  2. [RunView] : Monitor real-time phase and outcome counters
//  3. [ResultView] : Inspect the summary and browse failed updates
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sweep engine, providing non-blocking
// status reporting while updates are in flight. Pressing q mid-run cancels the sweep's
// context; in-flight calls finish and the summary still renders.
//
// Keyboard navigation uses vim-style bindings (j/k, y/n, r, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
