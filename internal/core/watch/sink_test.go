package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/stats"
)

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewFromZap(zap.New(core))
	w := New(stats.New(stats.DefaultConfig()), WithSinks(NewLogSink(logger)))

	w.Begin("Fast.op", 10_000).End()
	w.Begin("Flagged.op", 0).End()
	_ = w.Measure("Broken.op", 10_000, func() error { return errors.New("nope") })
	_, _ = Intercept(context.Background(), w,
		Invocation{Scope: "P", Operation: "Params", Params: []Param{{Name: "id", Value: 9}}},
		Marker{ThresholdMs: 10_000, LogParameters: true},
		func(context.Context) (int, error) { return 0, nil })

	entries := logs.All()
	require.Len(t, entries, 4)

	require.Equal(t, "Method completed", entries[0].Message)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "Fast.op", entries[0].ContextMap()["key"])
	require.Equal(t, "normal", entries[0].ContextMap()["classification"])

	require.Equal(t, "Method slow", entries[1].Message)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.EqualValues(t, 0, entries[1].ContextMap()["threshold_ms"])

	require.Equal(t, "Method failed", entries[2].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	require.Equal(t, "nope", entries[2].ContextMap()["error"])

	require.Equal(t, "id=9", entries[3].ContextMap()["params"])
}
