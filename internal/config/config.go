package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type SinkMode string

const (
	SinkModeGRPC      SinkMode = "grpc"
	SinkModeWebSocket SinkMode = "websocket"
	SinkModeLog       SinkMode = "log"
)

// Endpoint is one configured control-plane endpoint. Immutable after load.
// Empty counter lists mean "collect everything discovered" for that scope.
type Endpoint struct {
	Name                     string
	Host                     string
	Port                     int
	Verbose                  bool
	Username                 string
	Password                 string
	HostCounters             []string
	VMCounters               []string
	InventoryRefreshInterval time.Duration
}

type Config struct {
	Endpoints []Endpoint

	PollInterval    time.Duration
	ProbeListenAddr string
	ShutdownTimeout time.Duration

	SinkMode           SinkMode
	SinkGRPCAddr       string
	SinkMethod         string
	SinkWSURL          string
	SinkWSWriteTimeout time.Duration
	SinkWSPingInterval time.Duration
	SinkToken          string

	SinkTLSEnabled    bool
	SinkTLSSkipVerify bool
	SinkTLSCAPath     string
	SinkTLSCertPath   string
	SinkTLSKeyPath    string

	HealthInterval time.Duration

	TLSSkipVerify bool
	LogJSON       bool
	LogLevel      string
}

// Load reads agent-level settings from the environment and the endpoint
// blocks from the YAML file at COLLECTSPHERE_CONFIG. The logger is needed at
// load time because unknown endpoint keys are warned about, not rejected.
func Load(logger *slog.Logger) (Config, error) {
	cfg := Config{
		PollInterval:       envDuration("COLLECTSPHERE_POLL_INTERVAL", 60*time.Second),
		ProbeListenAddr:    env("COLLECTSPHERE_PROBE_ADDR", "0.0.0.0:7444"),
		ShutdownTimeout:    envDuration("COLLECTSPHERE_SHUTDOWN_TIMEOUT", 20*time.Second),
		SinkMode:           SinkMode(strings.ToLower(env("COLLECTSPHERE_SINK_MODE", string(SinkModeGRPC)))),
		SinkGRPCAddr:       env("COLLECTSPHERE_SINK_GRPC_ADDR", "127.0.0.1:3002"),
		SinkMethod:         env("COLLECTSPHERE_SINK_METHOD", "/collectsphere.metrics.v1.MetricsService/StreamSamples"),
		SinkWSURL:          env("COLLECTSPHERE_SINK_WS_URL", "ws://127.0.0.1:3002/ws/samples"),
		SinkWSWriteTimeout: envDuration("COLLECTSPHERE_SINK_WS_WRITE_TIMEOUT", 5*time.Second),
		SinkWSPingInterval: envDuration("COLLECTSPHERE_SINK_WS_PING_INTERVAL", 10*time.Second),
		SinkToken:          env("COLLECTSPHERE_SINK_TOKEN", ""),
		SinkTLSEnabled:     envBool("COLLECTSPHERE_SINK_TLS_ENABLED", false),
		SinkTLSSkipVerify:  envBool("COLLECTSPHERE_SINK_TLS_SKIP_VERIFY", false),
		SinkTLSCAPath:      env("COLLECTSPHERE_SINK_TLS_CA_PATH", ""),
		SinkTLSCertPath:    env("COLLECTSPHERE_SINK_TLS_CERT_PATH", ""),
		SinkTLSKeyPath:     env("COLLECTSPHERE_SINK_TLS_KEY_PATH", ""),
		HealthInterval:     envDuration("COLLECTSPHERE_HEALTH_INTERVAL", 10*time.Second),
		TLSSkipVerify:      envBool("COLLECTSPHERE_TLS_SKIP_VERIFY", true),
		LogJSON:            envBool("COLLECTSPHERE_LOG_JSON", true),
		LogLevel:           strings.ToLower(env("COLLECTSPHERE_LOG_LEVEL", "info")),
	}

	path := env("COLLECTSPHERE_CONFIG", "/etc/collectsphere/endpoints.yaml")
	endpoints, err := LoadEndpoints(path, logger)
	if err != nil {
		return Config{}, err
	}
	cfg.Endpoints = endpoints

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint must be configured")
	}
	if c.PollInterval <= 0 {
		return errors.New("COLLECTSPHERE_POLL_INTERVAL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("COLLECTSPHERE_SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.HealthInterval <= 0 {
		return errors.New("COLLECTSPHERE_HEALTH_INTERVAL must be > 0")
	}
	switch c.SinkMode {
	case SinkModeGRPC, SinkModeWebSocket, SinkModeLog:
	default:
		return fmt.Errorf("unsupported sink mode %q", c.SinkMode)
	}
	if c.SinkMode == SinkModeGRPC && c.SinkGRPCAddr == "" {
		return errors.New("COLLECTSPHERE_SINK_GRPC_ADDR is required for grpc mode")
	}
	if c.SinkMode == SinkModeWebSocket && c.SinkWSURL == "" {
		return errors.New("COLLECTSPHERE_SINK_WS_URL is required for websocket mode")
	}
	seen := map[string]struct{}{}
	for _, ep := range c.Endpoints {
		if err := ep.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ep.Name]; dup {
			return fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		seen[ep.Name] = struct{}{}
	}
	return nil
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("endpoint name is required")
	}
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("endpoint %q: host is required", e.Name)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint %q: invalid port %d", e.Name, e.Port)
	}
	if e.InventoryRefreshInterval <= 0 {
		return fmt.Errorf("endpoint %q: inventory_refresh_interval must be > 0", e.Name)
	}
	return nil
}

// SinkTLSConfig builds the TLS settings for the metrics sink connection.
// Returns nil when sink TLS is disabled, which the sinks treat as plaintext.
func (c Config) SinkTLSConfig() (*tls.Config, error) {
	if !c.SinkTLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.SinkTLSSkipVerify}
	if c.SinkTLSCAPath != "" {
		caBytes, err := os.ReadFile(c.SinkTLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.SinkTLSCertPath != "" || c.SinkTLSKeyPath != "" {
		if c.SinkTLSCertPath == "" || c.SinkTLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.SinkTLSCertPath, c.SinkTLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
