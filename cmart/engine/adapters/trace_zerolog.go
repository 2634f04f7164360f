package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

type spanLoggerKey struct{}

// ZerologTracer implements the Tracer port on zerolog: one log line at span
// start, one at span end with the duration, and ad-hoc event lines in between
// carrying the span's fields.
type ZerologTracer struct {
	logger zerolog.Logger
}

func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	spanLogger := t.logger.With().Str("span", name).Fields(attrs).Logger()
	ctx = context.WithValue(ctx, spanLoggerKey{}, spanLogger)

	start := time.Now()
	spanLogger.Debug().Msg("span start")

	finish := func(err error) {
		evt := spanLogger.Debug()
		if err != nil {
			evt = spanLogger.Error().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("span end")
	}
	return ctx, finish
}

func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if spanLogger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger); ok {
		logger = spanLogger
	}
	logger.Info().Fields(attrs).Str("event", name).Msg("trace event")
}

var _ ports.Tracer = (*ZerologTracer)(nil)
