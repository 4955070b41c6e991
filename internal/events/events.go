// Package events connects the moment service to NATS.
//
// Publisher announces completed matching passes and recorded feedback on
//
//	<prefix>.moment.matched
//	<prefix>.feedback.recorded
//
// CalendarSubscriber turns messages on <prefix>.calendar.upcoming into
// calendar moments.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/momentd/internal/config"
	"github.com/fyrsmithlabs/momentd/internal/logging"
)

// Subject suffixes, joined to the configured prefix with a dot.
const (
	SubjectMomentMatched    = "moment.matched"
	SubjectFeedbackRecorded = "feedback.recorded"
	SubjectCalendarUpcoming = "calendar.upcoming"
)

// Subject joins prefix and suffix.
func Subject(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

// Connect dials the configured NATS server. The connection keeps retrying
// in the background if the server is not up yet.
func Connect(ctx context.Context, cfg config.NATSConfig, logger *logging.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("momentd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn(ctx, "nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(ctx, "nats reconnected", zap.String("url", c.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			logger.Warn(ctx, "nats async error", fields...)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info(ctx, "connected to NATS", zap.String("subject_prefix", cfg.SubjectPrefix))
	return nc, nil
}
