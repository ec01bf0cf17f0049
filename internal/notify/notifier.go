package notify

import (
	"context"

	"github.com/nholik/stackyard/internal/transition"
)

// Notifier delivers stack transition alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, transitions []transition.StackTransition) error
}
