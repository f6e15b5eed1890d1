// package notify delivers run reports to a Telegram chat
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/telebot.v3"

	"github.com/tmacdonald/prefsweep/internal/engine"
	"github.com/tmacdonald/prefsweep/internal/shared"
)

// sender abstracts the bot library so tests can capture messages without a
// network round trip.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier pushes sweep reports to a single Telegram chat. The bot is
// send-only; it never polls for updates.
type Notifier struct {
	bot    sender
	chatID int64
	logger *log.Logger
}

// New builds a Notifier from the configured bot token and chat id. Creating
// the bot verifies the token against the Telegram API.
func New(cfg shared.NotifyConfig, logger *log.Logger) (*Notifier, error) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("%w: telegram token and chat id", shared.ErrMissingCredentials)
	}

	bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Notifier{bot: bot, chatID: cfg.TelegramChatID, logger: logger}, nil
}

// NotifyRun delivers the run report to the configured chat.
func (n *Notifier) NotifyRun(summary *engine.RunSummary) error {
	text := buildMessage(summary)

	if _, err := n.bot.Send(telebot.ChatID(n.chatID), text); err != nil {
		return fmt.Errorf("failed to deliver run report: %w", err)
	}

	n.logger.Debug("run report delivered", "chat", n.chatID)
	return nil
}

// buildMessage renders a compact plain-text report. Plain text on purpose:
// category names contain underscores that Telegram's Markdown mode would
// reject as unbalanced entities.
func buildMessage(summary *engine.RunSummary) string {
	var b strings.Builder

	status := "Sweep complete"
	switch {
	case summary.Fatal != "":
		status = "Sweep aborted"
	case summary.Failed > 0:
		status = "Sweep finished with failures"
	}

	fmt.Fprintf(&b, "%s (%s)\n", status, shared.ShortID(summary.RunID))
	fmt.Fprintf(&b, "Terms: %s\n", strings.Join(summary.Terms, ", "))
	fmt.Fprintf(&b, "Target frequency: %s\n", summary.Frequency)
	fmt.Fprintf(&b, "Users: %d, planned: %d, excluded: %d\n", summary.Users, summary.Planned, summary.Excluded)
	fmt.Fprintf(&b, "Succeeded: %d, skipped: %d, failed: %d\n", summary.Succeeded, summary.Skipped, summary.Failed)

	if len(summary.SkippedBranches) > 0 {
		fmt.Fprintf(&b, "Branches skipped: %d\n", len(summary.SkippedBranches))
	}
	if summary.Fatal != "" {
		fmt.Fprintf(&b, "Reason: %s\n", summary.Fatal)
	}

	fmt.Fprintf(&b, "Elapsed: %s", summary.Elapsed.Round(time.Second))
	return b.String()
}
