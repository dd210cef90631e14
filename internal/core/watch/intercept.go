package watch

import (
	"context"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
)

// Marker is the declarative attachment for an intercepted operation.
type Marker struct {
	// Name replaces the operation name in the statistics key.
	Name string
	// ThresholdMs is the slow boundary; zero classifies every success as slow.
	ThresholdMs uint64
	// LogParameters renders the invocation's parameters into the report.
	LogParameters bool
	// LogResult renders a successful return value into the report.
	LogResult bool
}

// Param is one named argument of an intercepted invocation.
type Param struct {
	Name  string
	Value any
}

// Invocation describes a call about to be intercepted.
type Invocation struct {
	// Scope is the enclosing context, e.g. a controller or package name.
	Scope     string
	Operation string
	Params    []Param
}

// Key returns the statistics key for the invocation under m.
func (inv Invocation) Key(m Marker) string {
	name := inv.Operation
	if m.Name != "" {
		name = m.Name
	}
	return Key(inv.Scope, name)
}

// Intercept wraps one invocation of fn: it opens a scope before the call,
// marks it failed when fn returns an error or panics, and ends it after.
// Parameter and result rendering is best-effort and cannot fail the call.
func Intercept[T any](ctx context.Context, w *Watcher, inv Invocation, m Marker, fn func(context.Context) (T, error)) (T, error) {
	scope := w.Begin(inv.Key(m), m.ThresholdMs)
	if m.LogParameters {
		scope.params = w.describeParams(inv.Params)
	}

	w.logger.Debug("Intercepting invocation",
		log.String("key", scope.key),
		log.String("scope_id", scope.id),
		log.String("params", scope.params))

	var render func(T) string
	if m.LogResult {
		render = func(v T) string { return w.serialize(v) }
	}

	return guard(scope, func() (T, error) { return fn(ctx) }, render)
}
