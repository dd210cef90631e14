package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/internal/core/watch"
)

type captureSink struct {
	mx      sync.Mutex
	reports []watch.Report
}

func (s *captureSink) Observe(r watch.Report) {
	s.mx.Lock()
	s.reports = append(s.reports, r)
	s.mx.Unlock()
}

func (s *captureSink) last() watch.Report {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.reports[len(s.reports)-1]
}

func TestWatch(t *testing.T) {
	reg := stats.New(stats.DefaultConfig())
	sink := &captureSink{}
	w := watch.New(reg, watch.WithSinks(sink))
	inv := watch.Invocation{Scope: "TestController", Operation: "Handle"}

	t.Run("Success", func(t *testing.T) {
		h := Watch(w, inv, watch.Marker{ThresholdMs: 10_000, LogResult: true})(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusCreated)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusCreated, rec.Code)
		snap, ok := reg.Get("TestController.Handle")
		require.True(t, ok)
		require.EqualValues(t, 1, snap.TotalExecutions)
		require.Zero(t, snap.TotalFailures)
		require.Equal(t, "201", sink.last().Output)
	})

	t.Run("Client Error Is Not Failure", func(t *testing.T) {
		h := Watch(w, watch.Invocation{Operation: "BadRequest"}, watch.Marker{ThresholdMs: 10_000})(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
			http.Error(rw, "bad", http.StatusBadRequest)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		snap, _ := reg.Get("BadRequest")
		require.Zero(t, snap.TotalFailures)
	})

	t.Run("Server Error Is Failure", func(t *testing.T) {
		h := Watch(w, watch.Invocation{Operation: "Broken"}, watch.Marker{})(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
			http.Error(rw, "down", http.StatusServiceUnavailable)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		snap, _ := reg.Get("Broken")
		require.EqualValues(t, 1, snap.TotalFailures)
		require.Contains(t, snap.LastError, "503")
		require.ErrorIs(t, sink.last().Err, ErrServerStatus)
	})

	t.Run("Query Parameters", func(t *testing.T) {
		h := Watch(w, watch.Invocation{Operation: "Params"}, watch.Marker{ThresholdMs: 10_000, LogParameters: true})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?value=42&name=x&tag=a&tag=b", nil))
		require.Equal(t, `name="x", tag=["a","b"], value="42"`, sink.last().Params)
	})

	t.Run("Panic Recorded And Propagated", func(t *testing.T) {
		h := Watch(w, watch.Invocation{Operation: "Panics"}, watch.Marker{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("handler exploded")
		}))
		require.PanicsWithValue(t, "handler exploded", func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
		snap, _ := reg.Get("Panics")
		require.EqualValues(t, 1, snap.TotalFailures)
	})
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewFromZap(zap.New(core))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ok", func(rw http.ResponseWriter, _ *http.Request) { _, _ = rw.Write([]byte("hello")) })
	mux.HandleFunc("GET /fail", func(rw http.ResponseWriter, _ *http.Request) { rw.WriteHeader(http.StatusInternalServerError) })
	h := Logging(logger)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "Request handled", entries[0].Message)
	require.EqualValues(t, 200, entries[0].ContextMap()["status"])
	require.EqualValues(t, 5, entries[0].ContextMap()["bytes"])
	require.Equal(t, "/ok", entries[0].ContextMap()["path"])
	require.Equal(t, "Request failed", entries[1].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestLogging_WebsocketUpgrade(t *testing.T) {
	upgrader := websocket.Upgrader{}
	h := Logging(log.Nop())(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hi"))
		_ = conn.Close()
	}))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "hi", string(msg))
}
