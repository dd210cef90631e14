package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/methodwatch/internal/core/observability/log"
)

const (
	EnvStatisticsEnabled = "METHODWATCH_STATISTICS_ENABLED"
	EnvListenAddr        = "METHODWATCH_LISTEN_ADDR"
	EnvLogLevel          = "METHODWATCH_LOG_LEVEL"
)

var (
	ErrInvalidShards       = errors.New("statistics.shards must be positive")
	ErrInvalidReportTop    = errors.New("statistics.report_top must be positive when reporting is enabled")
	ErrNegativeInterval    = errors.New("statistics.report_interval must not be negative")
	ErrMissingListenAddr   = errors.New("server.listen_addr is required")
	ErrMissingTLSMaterial  = errors.New("server.http3_addr requires tls_cert_file and tls_key_file")
	ErrInvalidStreamBuffer = errors.New("server.stream_buffer must be positive")
	ErrInvalidEncoding     = errors.New("log.encoding must be json or console")
)

// Config is the whole process configuration.
type Config struct {
	Statistics Statistics `yaml:"statistics"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

type Statistics struct {
	// Enabled is read once at startup; the registry never re-reads it.
	Enabled            bool          `yaml:"enabled"`
	Shards             int           `yaml:"shards"`
	DefaultThresholdMs uint64        `yaml:"default_threshold_ms"`
	ReportInterval     time.Duration `yaml:"report_interval"`
	ReportTop          int           `yaml:"report_top"`
}

type Server struct {
	ListenAddr   string `yaml:"listen_addr"`
	HTTP3Addr    string `yaml:"http3_addr"`
	TLSCertFile  string `yaml:"tls_cert_file"`
	TLSKeyFile   string `yaml:"tls_key_file"`
	DemoRoutes   bool   `yaml:"demo_routes"`
	StreamBuffer int    `yaml:"stream_buffer"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Statistics: Statistics{
			Enabled:            true,
			Shards:             32,
			DefaultThresholdMs: 500,
			ReportInterval:     time.Minute,
			ReportTop:          5,
		},
		Server: Server{
			ListenAddr:   "127.0.0.1:8080",
			DemoRoutes:   true,
			StreamBuffer: 64,
		},
		Log: Log{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// LoadYAML decodes a YAML document on top of Default. Keys absent from the
// document keep their default value.
func LoadYAML(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path (an empty path means defaults), loads an
// optional .env file from the working directory, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer func() { _ = f.Close() }()

		if cfg, err = LoadYAML(f); err != nil {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvStatisticsEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStatisticsEnabled, err)
		}
		c.Statistics.Enabled = enabled
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Server.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Statistics.Shards <= 0 {
		errs = append(errs, ErrInvalidShards)
	}
	if c.Statistics.ReportInterval < 0 {
		errs = append(errs, ErrNegativeInterval)
	}
	if c.Statistics.ReportInterval > 0 && c.Statistics.ReportTop <= 0 {
		errs = append(errs, ErrInvalidReportTop)
	}
	if c.Server.ListenAddr == "" {
		errs = append(errs, ErrMissingListenAddr)
	}
	if c.Server.HTTP3Addr != "" && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		errs = append(errs, ErrMissingTLSMaterial)
	}
	if c.Server.StreamBuffer <= 0 {
		errs = append(errs, ErrInvalidStreamBuffer)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		errs = append(errs, ErrInvalidEncoding)
	}

	return errors.Join(errs...)
}
