package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	KindRegistration   = "registration"
	KindStake          = "stake"
	KindReferralReward = "referral_reward"
	KindLevelUpReward  = "level_up_reward"
	KindPeriodicReward = "periodic_reward"
	KindAdminPayout    = "admin_payout"
)

// Message describes a ledger event delivered to downstream systems.
type Message struct {
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"`
	Source     string    `json:"source,omitempty"`
	Amount     uint64    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("subject", message.Subject),
		slog.String("source", message.Source),
		slog.Uint64("amount", message.Amount),
		slog.Time("occurred_at", message.OccurredAt),
	)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all notifiers even when some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
