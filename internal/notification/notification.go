package notification

import (
	"context"
	"errors"
	"log/slog"
)

const (
	// KindReleased is emitted once per successful vesting release.
	KindReleased = "released"
	// KindDeployed is emitted when a vesting deployment is created.
	KindDeployed = "deployed"
	// KindDeposited is emitted when funds are added to a deployment.
	KindDeposited = "deposited"
)

// Message describes a notification payload.
type Message struct {
	Kind          string `msgpack:"kind"`
	DeploymentID  string `msgpack:"deployment_id"`
	Destination   string `msgpack:"to"`
	Value         uint64 `msgpack:"value"`
	TransactionID string `msgpack:"transaction_id,omitempty"`
	OccurredAt    int64  `msgpack:"occurred_at"`
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
		"kind", message.Kind,
		"deployment_id", message.DeploymentID,
		"destination", message.Destination,
		"value", message.Value,
		"transaction_id", message.TransactionID,
	)
	return nil
}

// Fanout delivers every message to each notifier in turn.
type Fanout []Notifier

// Send attempts every notifier and joins their failures.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
