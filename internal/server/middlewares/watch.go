package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/zeusync/methodwatch/internal/core/watch"
)

// ErrServerStatus marks a measured request that answered with a 5xx status.
var ErrServerStatus = errors.New("handler answered with server error")

// Watch measures every request through next under inv's key. A 5xx status
// or a panic counts as a failed execution; panics keep propagating to the
// http.Server. With m.LogParameters the query values become the invocation
// parameters, and with m.LogResult the status code is the rendered result.
func Watch(w *watch.Watcher, inv watch.Invocation, m watch.Marker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			call := inv
			if m.LogParameters {
				call.Params = queryParams(r)
			}

			rec := newStatusRecorder(rw)
			_, _ = watch.Intercept(r.Context(), w, call, m, func(context.Context) (int, error) {
				next.ServeHTTP(rec, r)
				if code := rec.Status(); code >= http.StatusInternalServerError {
					return code, fmt.Errorf("%w: %d %s", ErrServerStatus, code, http.StatusText(code))
				}
				return rec.Status(), nil
			})
		})
	}
}

func queryParams(r *http.Request) []watch.Param {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	slices.Sort(names)

	params := make([]watch.Param, 0, len(names))
	for _, name := range names {
		values := q[name]
		var v any = values
		if len(values) == 1 {
			v = values[0]
		}
		params = append(params, watch.Param{Name: name, Value: v})
	}
	return params
}
