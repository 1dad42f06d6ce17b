package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for endpoint blocks, matching what earlier deployments shipped.
const (
	DefaultPort                     = 443
	DefaultUsername                 = "root"
	DefaultPassword                 = "vmware"
	DefaultInventoryRefreshInterval = 600 * time.Second
)

type endpointsFile struct {
	Endpoints []map[string]yaml.Node `yaml:"endpoints"`
}

// LoadEndpoints parses the endpoint blocks from a YAML file. Unknown keys in
// a block are logged and skipped so a newer config file keeps working against
// an older agent.
func LoadEndpoints(path string, logger *slog.Logger) ([]Endpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseEndpoints(raw, logger)
}

func ParseEndpoints(raw []byte, logger *slog.Logger) ([]Endpoint, error) {
	var file endpointsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	endpoints := make([]Endpoint, 0, len(file.Endpoints))
	for i, block := range file.Endpoints {
		ep, err := parseEndpointBlock(block, logger)
		if err != nil {
			return nil, fmt.Errorf("endpoint block %d: %w", i, err)
		}
		logger.Info("loaded endpoint config",
			"name", ep.Name,
			"host", ep.Host,
			"port", ep.Port,
			"username", ep.Username,
			"password", "******",
			"host_counters", len(ep.HostCounters),
			"vm_counters", len(ep.VMCounters),
			"inventory_refresh_interval", ep.InventoryRefreshInterval,
		)
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

func parseEndpointBlock(block map[string]yaml.Node, logger *slog.Logger) (Endpoint, error) {
	ep := Endpoint{
		Port:                     DefaultPort,
		Username:                 DefaultUsername,
		Password:                 DefaultPassword,
		InventoryRefreshInterval: DefaultInventoryRefreshInterval,
	}

	for key, node := range block {
		var err error
		switch strings.ToLower(key) {
		case "name":
			err = node.Decode(&ep.Name)
		case "host":
			err = node.Decode(&ep.Host)
		case "port":
			err = node.Decode(&ep.Port)
		case "verbose":
			err = node.Decode(&ep.Verbose)
		case "username":
			err = node.Decode(&ep.Username)
		case "password":
			err = node.Decode(&ep.Password)
		case "host_counters":
			ep.HostCounters, err = decodeCounterList(node)
		case "vm_counters":
			ep.VMCounters, err = decodeCounterList(node)
		case "inventory_refresh_interval":
			ep.InventoryRefreshInterval, err = decodeSeconds(node)
		default:
			logger.Warn("unknown config key, ignoring", "key", key)
			continue
		}
		if err != nil {
			return Endpoint{}, fmt.Errorf("key %q: %w", key, err)
		}
	}
	return ep, nil
}

// decodeCounterList accepts "all", a comma-separated string, or a YAML list
// of counter names. "all" and the empty string yield nil, meaning no filter.
func decodeCounterList(node yaml.Node) ([]string, error) {
	if node.Kind == yaml.SequenceNode {
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, err
		}
		return normalizeCounterNames(names), nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return nil, nil
	}
	return normalizeCounterNames(strings.Split(s, ",")), nil
}

func normalizeCounterNames(names []string) []string {
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// decodeSeconds accepts either a bare integer (seconds, the historical form)
// or a Go duration string.
func decodeSeconds(node yaml.Node) (time.Duration, error) {
	s := strings.TrimSpace(node.Value)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", s)
	}
	return d, nil
}
