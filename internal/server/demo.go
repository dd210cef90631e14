package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/zeusync/methodwatch/internal/core/watch"
	"github.com/zeusync/methodwatch/internal/server/middlewares"
	"github.com/zeusync/methodwatch/pkg/encoding"
)

const demoScope = "TestController"

// ComplexObject is the body accepted by the complex demo route. The handler
// points Self back at the object to exercise cycle-safe serialization.
type ComplexObject struct {
	Name  string         `json:"name"`
	Value int            `json:"value"`
	Items []string       `json:"items"`
	Self  *ComplexObject `json:"self"`
}

func (s *Server) mountDemo(mux *http.ServeMux) {
	marker := watch.Marker{ThresholdMs: s.config.DemoThresholdMs}
	measured := func(operation string, h http.HandlerFunc) http.Handler {
		return middlewares.Watch(s.watcher, watch.Invocation{Scope: demoScope, Operation: operation}, marker)(h)
	}

	mux.Handle("GET /test/fast", measured("FastOperation", s.handleFast))
	mux.Handle("GET /test/slow", measured("SlowOperation", s.handleSlow))
	mux.HandleFunc("GET /test/with-params", s.handleWithParams)
	mux.HandleFunc("GET /test/with-exception", s.handleWithException)
	mux.HandleFunc("POST /test/complex", s.handleComplex)
	mux.HandleFunc("GET /test/manual", s.handleManual)
}

func (s *Server) handleFast(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, "Fast operation completed")
}

func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	if err := sleep(r.Context(), 200*time.Millisecond); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, "Slow operation completed")
}

func (s *Server) handleWithParams(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	value, err := strconv.Atoi(r.URL.Query().Get("value"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("value: %w", err))
		return
	}

	inv := watch.Invocation{
		Scope:     demoScope,
		Operation: "OperationWithParams",
		Params:    []watch.Param{{Name: "name", Value: name}, {Name: "value", Value: value}},
	}
	m := watch.Marker{ThresholdMs: s.config.DemoThresholdMs, LogParameters: true}
	out, _ := watch.Intercept(r.Context(), s.watcher, inv, m, func(context.Context) (string, error) {
		return fmt.Sprintf("Operation with parameters: %s, %d", name, value), nil
	})
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWithException(w http.ResponseWriter, r *http.Request) {
	inv := watch.Invocation{Scope: demoScope, Operation: "OperationWithException"}
	m := watch.Marker{ThresholdMs: s.config.DemoThresholdMs}
	_, err := watch.Intercept(r.Context(), s.watcher, inv, m, func(context.Context) (struct{}, error) {
		return struct{}{}, ErrTestException
	})
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) handleComplex(w http.ResponseWriter, r *http.Request) {
	var data ComplexObject
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidBody, err))
		return
	}
	data.Self = &data

	inv := watch.Invocation{
		Scope:     demoScope,
		Operation: "ComplexOperation",
		Params:    []watch.Param{{Name: "data", Value: &data}},
	}
	m := watch.Marker{ThresholdMs: s.config.DemoThresholdMs, LogParameters: true, LogResult: true}
	out, _ := watch.Intercept(r.Context(), s.watcher, inv, m, func(context.Context) (*ComplexObject, error) {
		return &data, nil
	})
	s.writeRaw(w, http.StatusOK, encoding.SafeSerialize(out))
}

// handleManual measures sequential and nested regions by hand.
func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	th := s.config.DemoThresholdMs

	err := s.watcher.Measure(watch.Key(demoScope, "ManualMeasurement"), th, func() error {
		return sleep(ctx, 50*time.Millisecond)
	})
	if err == nil {
		inv := watch.Invocation{
			Scope:     demoScope,
			Operation: "ManualMeasurement",
			Params:    []watch.Param{{Name: "param1", Value: "value1"}, {Name: "param2", Value: 42}},
		}
		_, err = watch.Intercept(ctx, s.watcher, inv, watch.Marker{ThresholdMs: th, LogParameters: true},
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, sleep(ctx, 75*time.Millisecond)
			})
	}
	if err == nil {
		err = s.nested(ctx, th)
	}
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	s.writeJSON(w, http.StatusOK, "Manual measurement examples completed")
}

func (s *Server) nested(ctx context.Context, th uint64) error {
	outer := s.watcher.Begin(watch.Key(demoScope, "OuterOperation"), th)
	defer outer.End()

	if err := sleep(ctx, 25*time.Millisecond); err != nil {
		outer.MarkFailed(err)
		return err
	}

	inner := s.watcher.Begin(watch.Key(demoScope, "InnerOperation"), th)
	if err := sleep(ctx, 50*time.Millisecond); err != nil {
		inner.MarkFailed(err)
		inner.End()
		outer.MarkFailed(err)
		return err
	}
	inner.End()

	if err := sleep(ctx, 25*time.Millisecond); err != nil {
		outer.MarkFailed(err)
		return err
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
