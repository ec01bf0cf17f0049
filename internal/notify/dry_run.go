package notify

import (
	"context"

	"github.com/nholik/stackyard/internal/transition"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs transitions without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, transitions []transition.StackTransition) error {
	for _, change := range transitions {
		event := n.logger.Info().
			Str("stack", change.Stack).
			Str("previous_status", statusLabel(change.PreviousStatus)).
			Str("current_status", statusLabel(change.CurrentStatus)).
			Str("control", string(change.Control))
		if change.ServiceChange != nil {
			event = event.Int("running", change.ServiceChange.CurrentRunning).
				Int("total", change.ServiceChange.CurrentTotal)
		}
		event.Msg("[DRY-RUN] Would notify")
	}
	return nil
}
