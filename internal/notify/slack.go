package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/stackyard/internal/reconcile"
	"github.com/nholik/stackyard/internal/transition"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// header block + context block in each message
	slackReservedBlocks = 2
	slackMaxTransitions = slackMaxBlocks - slackReservedBlocks
)

type SlackNotifier struct {
	logger zerolog.Logger
	timing timingConfig
	poster *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	notifier := &SlackNotifier{
		logger: logger,
		timing: defaultTiming,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier. Large batches are split across several messages.
func (n *SlackNotifier) Notify(ctx context.Context, transitions []transition.StackTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	messages := buildSlackMessages(transitions)
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.send(ctx, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Int("transitions", len(transitions)).
		Int("messages", len(messages)).
		Msg("slack notification sent")

	return nil
}

func (n *SlackNotifier) postOnce(ctx context.Context, payload []byte) error {
	return n.poster.postOnce(ctx, payload)
}

func buildSlackMessages(transitions []transition.StackTransition) []slack.WebhookMessage {
	if len(transitions) == 0 {
		return nil
	}

	total := len(transitions)
	chunkTotal := (total + slackMaxTransitions - 1) / slackMaxTransitions
	messages := make([]slack.WebhookMessage, 0, chunkTotal)

	for i := 0; i < total; i += slackMaxTransitions {
		end := min(i+slackMaxTransitions, total)
		partIndex := (i / slackMaxTransitions) + 1
		messages = append(messages, buildSlackMessage(transitions[i:end], total, partIndex, chunkTotal))
	}
	return messages
}

func buildSlackMessage(transitions []transition.StackTransition, total int, partIndex int, partTotal int) slack.WebhookMessage {
	summary := fmt.Sprintf("%d stack transition(s)", total)
	if partTotal > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, partIndex, partTotal)
	}
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))

	stopped, inactive := 0, 0
	for _, change := range transitions {
		switch change.CurrentStatus {
		case reconcile.StatusStopped:
			stopped++
		case reconcile.StatusInactive:
			inactive++
		}
	}
	contextElements := []slack.MixedElement{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Stopped: *%d*  Inactive: *%d*", stopped, inactive), false, false),
	}
	if partTotal > 1 {
		contextElements = append(contextElements, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Batch: %d/%d", partIndex, partTotal), false, false))
	}
	context := slack.NewContextBlock("", contextElements...)

	blocks := []slack.Block{header, context}
	for _, change := range transitions {
		blocks = append(blocks, buildTransitionBlock(change))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildTransitionBlock(change transition.StackTransition) slack.Block {
	title := fmt.Sprintf("*%s*: `%s` → `%s`", change.Stack, statusLabel(change.PreviousStatus), statusLabel(change.CurrentStatus))
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", "*Control:*\n"+controlLabel(change.Control), false, false),
	}
	if change.ServiceChange != nil {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", formatServiceChange(change.ServiceChange), false, false))
	}
	if change.DefinitionPath != "" {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Definition:*\n`%s`", change.DefinitionPath), false, false))
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func formatServiceChange(change *transition.ServiceChange) string {
	return fmt.Sprintf("*Services:*\nRunning %d/%d (Δ %d)",
		change.CurrentRunning, change.CurrentTotal, change.RunningDelta)
}

func controlLabel(control reconcile.ControlLevel) string {
	switch control {
	case reconcile.ControlFull:
		return "managed"
	case reconcile.ControlPartial:
		return "managed, path differs"
	default:
		return "unmanaged"
	}
}

func statusLabel(status reconcile.AggregateStatus) string {
	if status == "" {
		return "unknown"
	}
	return string(status)
}
