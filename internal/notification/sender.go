// Package notification delivers outbound mail. The scaffold ships a
// development sender that logs instead of sending; production deployments
// plug a real provider behind the same interface.
//
// Import Path: novostudio.tech/foundation/internal/notification
package notification

import (
	"context"

	"go.uber.org/zap"

	"novostudio.tech/foundation/internal/pkg/logger"
	"novostudio.tech/foundation/internal/pkg/worker"
)

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message. Implementations must be safe for concurrent
// use; delivery runs on the mailer worker pool.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Used in
// development and tests. The body is logged too: locally the OTP code has
// to come from somewhere.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, msg Message) error {
	logger.Info("outbound mail (log sender)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// Dispatch queues msg for delivery on the mailer pool, detached from the
// request so a slow provider cannot block the response. Failures are logged;
// the caller already answered the client.
func Dispatch(pools *worker.Pools, sender Sender, msg Message) {
	err := pools.SubmitDetached("mailer", func(ctx context.Context) {
		if err := sender.Send(ctx, msg); err != nil {
			logger.Error("mail delivery failed",
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		logger.Error("mail dispatch rejected",
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}
}
