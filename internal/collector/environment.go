package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

// Environment is the per-endpoint runtime cache: the scope allow-lists and
// the counter metadata needed to compose metric keys. It is immutable once
// built; a refresh replaces it wholesale.
type Environment struct {
	Endpoint    config.Endpoint
	HostMetrics []model.MetricDescriptor
	VMMetrics   []model.MetricDescriptor
	Counters    map[int32]model.CounterInfo
	BuiltAt     time.Time
}

// Stale reports whether the environment has outlived the endpoint's
// inventory refresh interval.
func (e *Environment) Stale(now time.Time) bool {
	return now.Sub(e.BuiltAt) >= e.Endpoint.InventoryRefreshInterval
}

// BuildEnvironment resolves the configured counter names, discovers the
// queryable metrics of a powered-on probe host and probe VM, and derives the
// allow-lists for both scopes. It needs at least one powered-on host and one
// powered-on VM anywhere in the endpoint's inventory.
func BuildEnvironment(ctx context.Context, sess vsphere.Session, ep config.Endpoint, now time.Time, logger *slog.Logger) (*Environment, error) {
	catalog, err := sess.CounterCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("counter catalog: %w", err)
	}

	wanted := make([]string, 0, len(ep.HostCounters)+len(ep.VMCounters))
	wanted = append(wanted, ep.HostCounters...)
	wanted = append(wanted, ep.VMCounters...)
	resolved := ResolveCounterIDs(catalog, wanted)

	probeHost, ok, err := sess.ProbeHost(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe host: %w", err)
	}
	if !ok {
		return nil, ErrNoPoweredOnHost
	}
	probeVM, ok, err := sess.ProbeVM(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe vm: %w", err)
	}
	if !ok {
		return nil, ErrNoPoweredOnVM
	}

	periods, err := sess.DiscoveryPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery periods: %w", err)
	}

	hostDiscovered, err := discoverMetrics(ctx, sess, probeHost, periods)
	if err != nil {
		return nil, fmt.Errorf("discover host metrics: %w", err)
	}
	vmDiscovered, err := discoverMetrics(ctx, sess, probeVM, periods)
	if err != nil {
		return nil, fmt.Errorf("discover vm metrics: %w", err)
	}

	env := &Environment{
		Endpoint:    ep,
		HostMetrics: selectDescriptors(hostDiscovered, ep.HostCounters, resolved),
		VMMetrics:   selectDescriptors(vmDiscovered, ep.VMCounters, resolved),
		Counters:    make(map[int32]model.CounterInfo, len(catalog)),
		BuiltAt:     now,
	}
	for _, c := range catalog {
		env.Counters[c.ID] = c
	}

	if len(ep.HostCounters) == 0 {
		logger.Info("configured to grab all host counters", "endpoint", ep.Name)
	}
	logger.Info("environment built",
		"endpoint", ep.Name,
		"host_metrics", len(env.HostMetrics),
		"vm_metrics", len(env.VMMetrics),
		"probe_host", probeHost.Name,
		"probe_vm", probeVM.Name,
	)
	return env, nil
}
