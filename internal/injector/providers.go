package injector

import (
	"github.com/google/wire"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/methodwatch/internal/config"
	"github.com/zeusync/methodwatch/internal/core/observability/log"
	"github.com/zeusync/methodwatch/internal/core/observability/metrics"
	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/internal/core/watch"
	"github.com/zeusync/methodwatch/internal/reporter"
	"github.com/zeusync/methodwatch/internal/server"
)

// App is the fully wired process.
type App struct {
	Logger   *log.Logger
	Registry *stats.Registry
	Watcher  *watch.Watcher
	Server   *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideRegistry,
	ProvideHub,
	ProvideWatcher,
	ProvideMetrics,
	ProvideReporter,
	ProvideServerConfig,
	server.NewServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.New(level, cfg.Log.Encoding)
}

// ProvideRegistry fixes statistics enablement for the process lifetime.
func ProvideRegistry(cfg config.Config) *stats.Registry {
	c := stats.DefaultConfig()
	c.Enabled = cfg.Statistics.Enabled
	c.Shards = cfg.Statistics.Shards
	return stats.New(c)
}

func ProvideHub(cfg config.Config, logger log.Log) *server.Hub {
	return server.NewHub(cfg.Server.StreamBuffer, logger)
}

func ProvideWatcher(registry *stats.Registry, hub *server.Hub, logger log.Log) *watch.Watcher {
	return watch.New(registry,
		watch.WithLogger(logger.With(log.String("component", "watch"))),
		watch.WithSinks(watch.NewLogSink(logger.With(log.String("component", "methodwatch"))), hub),
	)
}

func ProvideMetrics(registry *stats.Registry) (*prom.Registry, error) {
	return metrics.NewRegistry(registry)
}

func ProvideReporter(cfg config.Config, registry *stats.Registry, logger log.Log) (*reporter.Reporter, error) {
	return reporter.New(registry, logger, cfg.Statistics.ReportInterval, cfg.Statistics.ReportTop)
}

func ProvideServerConfig(cfg config.Config) server.Config {
	c := server.DefaultServerConfig()
	c.ListenAddr = cfg.Server.ListenAddr
	c.HTTP3Addr = cfg.Server.HTTP3Addr
	c.TLSCertFile = cfg.Server.TLSCertFile
	c.TLSKeyFile = cfg.Server.TLSKeyFile
	c.DemoRoutes = cfg.Server.DemoRoutes
	c.DemoThresholdMs = cfg.Statistics.DefaultThresholdMs
	return c
}
