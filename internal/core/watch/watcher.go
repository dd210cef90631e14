package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/pkg/encoding"
)

// Result is what a Scope reports when it ends.
type Result struct {
	ScopeID        string         `json:"scopeId"`
	Key            string         `json:"key"`
	ElapsedMs      uint64         `json:"elapsedMs"`
	ThresholdMs    uint64         `json:"thresholdMs"`
	Classification Classification `json:"classification"`
	Err            error          `json:"-"`
	EndedAt        time.Time      `json:"endedAt"`
}

// Report is the record handed to sinks: a Result plus the optional
// diagnostic renderings produced by the interception hook.
type Report struct {
	Result
	Params string `json:"params,omitempty"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Watcher opens measurement scopes and commits their results to the
// statistics registry and to the configured sinks.
type Watcher struct {
	registry   *stats.Registry
	sinks      []Sink
	logger     log.Log
	serializer encoding.Serializer
}

type Option func(*Watcher)

// WithSinks appends result observers.
func WithSinks(sinks ...Sink) Option {
	return func(w *Watcher) {
		for _, s := range sinks {
			if s != nil {
				w.sinks = append(w.sinks, s)
			}
		}
	}
}

// WithLogger sets the logger used for instrumentation faults (failing sinks,
// rejected records). It does not log measurements; use a LogSink for that.
func WithLogger(l log.Log) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSerializer replaces the serializer used for parameters and results.
func WithSerializer(s encoding.Serializer) Option {
	return func(w *Watcher) {
		if s != nil {
			w.serializer = s
		}
	}
}

// New creates a Watcher. A nil registry behaves like a disabled one.
func New(registry *stats.Registry, opts ...Option) *Watcher {
	w := &Watcher{
		registry:   registry,
		logger:     log.Nop(),
		serializer: encoding.NewSafe(encoding.DefaultMaxDepth),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Registry returns the registry results are committed to; it may be nil.
func (w *Watcher) Registry() *stats.Registry {
	return w.registry
}

// StatisticsEnabled reports whether ended scopes update the registry.
func (w *Watcher) StatisticsEnabled() bool {
	return w.registry != nil && w.registry.Enabled()
}

// Measure times fn under key. The error returned by fn, or a panic raised
// by it, reaches the caller unchanged.
func (w *Watcher) Measure(key string, thresholdMs uint64, fn func() error) error {
	_, err := Run(w, key, thresholdMs, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Run times fn under key and returns its results unchanged.
func Run[T any](w *Watcher, key string, thresholdMs uint64, fn func() (T, error)) (T, error) {
	return guard(w.Begin(key, thresholdMs), fn, nil)
}

// guard runs fn and ends s on every exit path. A panic is recorded as a
// failure and then re-raised with its original value.
func guard[T any](s *Scope, fn func() (T, error), render func(T) string) (out T, err error) {
	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		if r != nil {
			s.MarkFailed(&PanicError{Value: r})
		} else {
			s.MarkFailed(ErrAborted)
		}
		s.finish("")
		if r != nil {
			panic(r)
		}
	}()

	out, err = fn()
	completed = true

	output := ""
	if err != nil {
		s.MarkFailed(err)
	} else if render != nil {
		output = render(out)
	}
	s.finish(output)
	return out, err
}

func (w *Watcher) commit(res Result, params, output string) {
	failed := res.Classification == Failed
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	if w.StatisticsEnabled() {
		if err := w.registry.RecordExecution(res.Key, res.ElapsedMs, res.ThresholdMs, failed, errMsg); err != nil {
			w.logger.Warn("Statistics record rejected",
				log.String("key", res.Key),
				log.Error(err))
		}
	}

	if len(w.sinks) == 0 {
		return
	}

	report := Report{Result: res, Params: params, Output: output, Error: errMsg}
	for _, sink := range w.sinks {
		w.deliver(sink, report)
	}
}

func (w *Watcher) deliver(sink Sink, report Report) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Measurement sink panicked",
				log.String("key", report.Key),
				log.String("panic", fmt.Sprint(r)))
		}
	}()
	sink.Observe(report)
}

// serialize never panics, whatever the configured Serializer does.
func (w *Watcher) serialize(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = encoding.UnserializablePlaceholder
		}
	}()
	return w.serializer.Serialize(v)
}

func (w *Watcher) describeParams(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + "=" + w.serialize(p.Value)
	}
	return strings.Join(parts, ", ")
}
