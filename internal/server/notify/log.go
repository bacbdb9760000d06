package notify

import (
	"context"

	"github.com/dmitrijs2005/lemonauth/internal/logging"
)

// LogSender writes messages to the logger instead of sending them. Bodies
// contain codes, so they are logged at debug level only.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "log_sender")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "email", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject)
	s.logger.Debug(ctx, "email body", "to", msg.To, "body", msg.Body)
	return nil
}
