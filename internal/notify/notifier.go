// Package notify delivers the rendered daily report over one or more
// channels (mail, Telegram). Channel failures are isolated: one broken
// channel never blocks delivery on the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the interface that each delivery channel must implement.
type Sender interface {
	// Send delivers a message with the given subject and plain-text body.
	Send(ctx context.Context, subject, body string) error
	// Name returns a human-readable identifier for the sender (e.g. "smtp").
	Name() string
}

// Notifier fans a message out to every configured sender.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. An
// empty sender list is valid; Send then becomes a no-op, which is how runs
// without mail credentials behave.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Send delivers to every sender. Errors from individual senders are
// collected and returned as a combined error after all senders have been
// tried.
func (n *Notifier) Send(ctx context.Context, subject, body string) error {
	if len(n.senders) == 0 {
		n.logger.DebugContext(ctx, "no senders configured, report not delivered")
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, subject, body); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.InfoContext(ctx, "report delivered",
			slog.String("sender", s.Name()),
			slog.String("subject", subject),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
