package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/methodwatch/internal/core/stats"
)

func TestCollector(t *testing.T) {
	reg := stats.New(stats.DefaultConfig())
	require.NoError(t, reg.RecordExecution("Orders.Load", 120, 100, false, ""))
	require.NoError(t, reg.RecordExecution("Orders.Load", 40, 100, true, "boom"))
	require.NoError(t, reg.RecordExecution("Users.Get", 5, 50, false, ""))

	c := NewCollector(reg)

	// 9 series per key.
	require.Equal(t, 18, testutil.CollectAndCount(c))

	expected := `
# HELP methodwatch_executions_total Completed executions per key.
# TYPE methodwatch_executions_total counter
methodwatch_executions_total{key="Orders.Load"} 2
methodwatch_executions_total{key="Users.Get"} 1
# HELP methodwatch_failures_total Failed executions per key.
# TYPE methodwatch_failures_total counter
methodwatch_failures_total{key="Orders.Load"} 1
methodwatch_failures_total{key="Users.Get"} 0
# HELP methodwatch_average_time_ms Integer mean execution time in milliseconds.
# TYPE methodwatch_average_time_ms gauge
methodwatch_average_time_ms{key="Orders.Load"} 80
methodwatch_average_time_ms{key="Users.Get"} 5
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"methodwatch_executions_total", "methodwatch_failures_total", "methodwatch_average_time_ms"))

	reg.Clear()
	require.Zero(t, testutil.CollectAndCount(c))
}

func TestCollector_Disabled(t *testing.T) {
	reg := stats.New(stats.Config{Enabled: false})
	require.NoError(t, reg.RecordExecution("k", 1, 1, false, ""))
	require.Zero(t, testutil.CollectAndCount(NewCollector(reg)))
	require.Zero(t, testutil.CollectAndCount(NewCollector(nil)))
}

func TestHTTPHandler(t *testing.T) {
	reg := stats.New(stats.DefaultConfig())
	require.NoError(t, reg.RecordExecution("Orders.Load", 10, 100, false, ""))

	promReg, err := NewRegistry(reg)
	require.NoError(t, err)

	srv := httptest.NewServer(HTTPHandler(promReg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `methodwatch_executions_total{key="Orders.Load"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}

func TestNewRegistry_Gather(t *testing.T) {
	promReg, err := NewRegistry(stats.New(stats.DefaultConfig()))
	require.NoError(t, err)
	mfs, err := promReg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	var _ prom.Gatherer = promReg
}
