// Package logging provides structured logging for momentd on top of Zap.
//
// The Logger wraps *zap.Logger with context-aware methods that inject
// correlation fields (trace_id, span_id, user.id, moment.id, request.id)
// from the context:
//
//	ctx = logging.WithUserID(ctx, userID)
//	ctx = logging.WithMomentID(ctx, momentID)
//	logger.Warn(ctx, "matching degraded", zap.String("reason", "timeout"))
//
// Output goes to stdout (JSON or console) and optionally to an OpenTelemetry
// log provider through the otelzap bridge. String values are passed through a
// redacting encoder before they are written, and sampling applies below Error.
//
// The level is held in a zap.AtomicLevel so it can be changed while the
// daemon runs (see Logger.SetLevel and config.Watch).
//
// Tests use NewTestLogger, which records entries through zaptest/observer:
//
//	tl := logging.NewTestLogger()
//	tl.Warn(ctx, "matching degraded")
//	tl.AssertLogged(t, zapcore.WarnLevel, "matching degraded")
package logging
