package watch

import (
	"github.com/zeusync/methodwatch/internal/core/observability/log"
)

// Sink observes every ended scope. Observe runs on the measured goroutine,
// so implementations must return quickly and must not block.
type Sink interface {
	Observe(report Report)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(report Report)

func (f SinkFunc) Observe(report Report) { f(report) }

var _ Sink = (*LogSink)(nil)

// LogSink writes one structured line per measurement: Info for normal,
// Warn for slow and Error for failed ones.
type LogSink struct {
	logger log.Log
}

func NewLogSink(logger log.Log) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Observe(r Report) {
	fields := make([]log.Field, 0, 8)
	fields = append(fields,
		log.String("key", r.Key),
		log.Uint64("elapsed_ms", r.ElapsedMs),
		log.Uint64("threshold_ms", r.ThresholdMs),
		log.String("classification", r.Classification.String()),
		log.String("scope_id", r.ScopeID),
	)
	if r.Params != "" {
		fields = append(fields, log.String("params", r.Params))
	}
	if r.Output != "" {
		fields = append(fields, log.String("result", r.Output))
	}
	if r.Err != nil {
		fields = append(fields, log.Error(r.Err))
	}

	switch r.Classification {
	case Failed:
		s.logger.Error("Method failed", fields...)
	case Slow:
		s.logger.Warn("Method slow", fields...)
	default:
		s.logger.Info("Method completed", fields...)
	}
}
