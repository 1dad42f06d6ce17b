package config

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestParseEndpointsDefaults(t *testing.T) {
	raw := []byte(`
endpoints:
  - name: lab
    host: vcenter.lab.example.com
`)
	var buf bytes.Buffer
	eps, err := ParseEndpoints(raw, testLogger(&buf))
	require.NoError(t, err)
	require.Len(t, eps, 1)

	ep := eps[0]
	assert.Equal(t, "lab", ep.Name)
	assert.Equal(t, "vcenter.lab.example.com", ep.Host)
	assert.Equal(t, DefaultPort, ep.Port)
	assert.Equal(t, DefaultUsername, ep.Username)
	assert.Equal(t, DefaultPassword, ep.Password)
	assert.Equal(t, DefaultInventoryRefreshInterval, ep.InventoryRefreshInterval)
	assert.Nil(t, ep.HostCounters)
	assert.Nil(t, ep.VMCounters)
}

func TestParseEndpointsFull(t *testing.T) {
	raw := []byte(`
endpoints:
  - name: prod
    host: vcenter.prod.example.com
    port: 8443
    verbose: true
    username: monitor
    password: secret
    host_counters: cpu.usage, mem.usage,
    vm_counters:
      - cpu.usage
      - disk.read
    inventory_refresh_interval: 300
`)
	var buf bytes.Buffer
	eps, err := ParseEndpoints(raw, testLogger(&buf))
	require.NoError(t, err)
	require.Len(t, eps, 1)

	ep := eps[0]
	assert.Equal(t, 8443, ep.Port)
	assert.True(t, ep.Verbose)
	assert.Equal(t, "monitor", ep.Username)
	assert.Equal(t, []string{"cpu.usage", "mem.usage"}, ep.HostCounters)
	assert.Equal(t, []string{"cpu.usage", "disk.read"}, ep.VMCounters)
	assert.Equal(t, 300*time.Second, ep.InventoryRefreshInterval)
}

func TestParseEndpointsCounterListAll(t *testing.T) {
	raw := []byte(`
endpoints:
  - name: lab
    host: vc
    host_counters: all
    vm_counters: "  ALL "
`)
	var buf bytes.Buffer
	eps, err := ParseEndpoints(raw, testLogger(&buf))
	require.NoError(t, err)
	assert.Nil(t, eps[0].HostCounters)
	assert.Nil(t, eps[0].VMCounters)
}

func TestParseEndpointsUnknownKeyWarnsAndContinues(t *testing.T) {
	raw := []byte(`
endpoints:
  - name: lab
    host: vc
    ssl_thumbprint: "aa:bb:cc"
`)
	var buf bytes.Buffer
	eps, err := ParseEndpoints(raw, testLogger(&buf))
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Contains(t, buf.String(), "unknown config key")
	assert.Contains(t, buf.String(), "ssl_thumbprint")
}

func TestParseEndpointsRefreshIntervalDuration(t *testing.T) {
	raw := []byte(`
endpoints:
  - name: lab
    host: vc
    inventory_refresh_interval: 15m
`)
	var buf bytes.Buffer
	eps, err := ParseEndpoints(raw, testLogger(&buf))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, eps[0].InventoryRefreshInterval)
}

func TestEndpointValidate(t *testing.T) {
	ep := Endpoint{Name: "x", Host: "vc", Port: 443, InventoryRefreshInterval: time.Minute}
	assert.NoError(t, ep.Validate())

	assert.Error(t, Endpoint{Host: "vc", Port: 443, InventoryRefreshInterval: time.Minute}.Validate())
	assert.Error(t, Endpoint{Name: "x", Port: 443, InventoryRefreshInterval: time.Minute}.Validate())
	assert.Error(t, Endpoint{Name: "x", Host: "vc", Port: 0, InventoryRefreshInterval: time.Minute}.Validate())
	assert.Error(t, Endpoint{Name: "x", Host: "vc", Port: 443}.Validate())
}

func TestConfigValidateDuplicateEndpoint(t *testing.T) {
	ep := Endpoint{Name: "x", Host: "vc", Port: 443, InventoryRefreshInterval: time.Minute}
	cfg := Config{
		Endpoints:       []Endpoint{ep, ep},
		PollInterval:    time.Minute,
		ShutdownTimeout: time.Second,
		HealthInterval:  time.Second,
		SinkMode:        SinkModeLog,
	}
	assert.ErrorContains(t, cfg.Validate(), "duplicate endpoint name")
}

func TestConfigValidateSinkMode(t *testing.T) {
	ep := Endpoint{Name: "x", Host: "vc", Port: 443, InventoryRefreshInterval: time.Minute}
	cfg := Config{
		Endpoints:       []Endpoint{ep},
		PollInterval:    time.Minute,
		ShutdownTimeout: time.Second,
		HealthInterval:  time.Second,
		SinkMode:        SinkMode("carrier-pigeon"),
	}
	assert.ErrorContains(t, cfg.Validate(), "unsupported sink mode")
}

func TestConfigValidateHealthInterval(t *testing.T) {
	ep := Endpoint{Name: "x", Host: "vc", Port: 443, InventoryRefreshInterval: time.Minute}
	cfg := Config{
		Endpoints:       []Endpoint{ep},
		PollInterval:    time.Minute,
		ShutdownTimeout: time.Second,
		SinkMode:        SinkModeLog,
	}
	assert.ErrorContains(t, cfg.Validate(), "COLLECTSPHERE_HEALTH_INTERVAL")
}

func TestSinkTLSConfigDisabled(t *testing.T) {
	var cfg Config
	tlsCfg, err := cfg.SinkTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestSinkTLSConfigEnabled(t *testing.T) {
	cfg := Config{SinkTLSEnabled: true, SinkTLSSkipVerify: true}
	tlsCfg, err := cfg.SinkTLSConfig()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)
	assert.True(t, tlsCfg.InsecureSkipVerify)
}

func TestSinkTLSConfigCertWithoutKey(t *testing.T) {
	cfg := Config{SinkTLSEnabled: true, SinkTLSCertPath: "/etc/collectsphere/client.crt"}
	_, err := cfg.SinkTLSConfig()
	assert.ErrorContains(t, err, "both TLS cert and key")
}

func TestSinkTLSConfigCAErrors(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caPath, []byte("not a pem"), 0o600))

	cfg := Config{SinkTLSEnabled: true, SinkTLSCAPath: caPath}
	_, err := cfg.SinkTLSConfig()
	assert.ErrorContains(t, err, "append CA cert")

	cfg.SinkTLSCAPath = filepath.Join(t.TempDir(), "missing.pem")
	_, err = cfg.SinkTLSConfig()
	assert.ErrorContains(t, err, "read CA file")
}
