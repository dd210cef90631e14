package injector

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/methodwatch/internal/config"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Statistics.ReportInterval = 0
	cfg.Log.Level = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.True(t, app.Registry.Enabled())

	ctx := context.Background()
	require.NoError(t, app.Server.Start(ctx))
	defer func() { require.NoError(t, app.Server.Stop(ctx)) }()

	resp, err := http.Get("http://" + app.Server.Addr().String() + "/test/fast")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())

	snap, ok := app.Registry.Get("TestController.FastOperation")
	require.True(t, ok)
	require.EqualValues(t, cfg.Statistics.DefaultThresholdMs, snap.ThresholdMs)
}

func TestInitializeApp_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.Statistics.Enabled = false
	cfg.Log.Level = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.False(t, app.Watcher.StatisticsEnabled())
}

func TestInitializeApp_BadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, err := InitializeApp(cfg)
	require.Error(t, err)
}
