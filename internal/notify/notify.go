// Package notify holds the delivery sinks behind the economy engine's
// Notifier interface.
package notify

import (
	"context"
	"log/slog"

	"parsec/internal/economy"
)

// LogNotifier writes alerts to the structured log. It is the fallback sink
// when no Discord credentials are configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) Notify(_ context.Context, owner economy.Owner, message string) error {
	n.log.Info("economy alert", "owner", owner.String(), "message", message)
	return nil
}
