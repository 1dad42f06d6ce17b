package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/naming"
	"github.com/xenocryst1/collectsphere/internal/stream"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

// dstOffset compensates for the control plane reporting sample timestamps in
// local time: while daylight-saving time is in effect the raw timestamps run
// an hour behind. Known quirk of the source timestamp semantics; kept for
// continuity with prior deployments.
const dstOffset = 3600

// Poller runs one poll cycle per endpoint: fresh connection, inventory walk,
// batched queries per cluster and per host, sample dispatch. Endpoints share
// nothing, so PollAll fans them out concurrently.
type Poller struct {
	logger       *slog.Logger
	connector    vsphere.Connector
	sink         stream.Sink
	endpoints    []config.Endpoint
	pollInterval time.Duration

	now       func() time.Time
	dstActive func(time.Time) bool

	mu   sync.Mutex
	envs map[string]*Environment
}

func NewPoller(logger *slog.Logger, connector vsphere.Connector, sink stream.Sink, endpoints []config.Endpoint, pollInterval time.Duration) *Poller {
	return &Poller{
		logger:       logger,
		connector:    connector,
		sink:         sink,
		endpoints:    endpoints,
		pollInterval: pollInterval,
		now:          time.Now,
		dstActive:    func(t time.Time) bool { return t.In(time.Local).IsDST() },
		envs:         make(map[string]*Environment),
	}
}

// BuildEnvironments builds the environment cache for every configured
// endpoint. A failing endpoint is logged and left without an environment; the
// next poll cycle retries from scratch.
func (p *Poller) BuildEnvironments(ctx context.Context) {
	for _, ep := range p.endpoints {
		if err := p.buildEnvironment(ctx, ep); err != nil {
			p.logger.Error("environment build failed", "endpoint", ep.Name, "error", err)
		}
	}
}

// PollAll runs one poll cycle for all endpoints, one goroutine each.
// Endpoint failures are scoped: they are logged, never propagated, so one
// unreachable endpoint cannot starve the others.
func (p *Poller) PollAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range p.endpoints {
		ep := ep
		g.Go(func() error {
			if err := p.pollEndpoint(gctx, ep); err != nil {
				p.logger.Error("poll cycle failed", "endpoint", ep.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) buildEnvironment(ctx context.Context, ep config.Endpoint) error {
	sess, err := p.connector.Connect(ctx, ep)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = sess.Close(ctx) }()

	env, err := BuildEnvironment(ctx, sess, ep, p.now(), p.logger)
	if err != nil {
		return err
	}
	p.setEnvironment(ep.Name, env)
	return nil
}

func (p *Poller) pollEndpoint(ctx context.Context, ep config.Endpoint) error {
	p.logger.Info("entering environment", "endpoint", ep.Name)

	sess, err := p.connector.Connect(ctx, ep)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = sess.Close(ctx) }()

	env := p.environment(ep.Name)
	if env == nil || env.Stale(p.now()) {
		env, err = BuildEnvironment(ctx, sess, ep, p.now(), p.logger)
		if err != nil {
			return err
		}
		p.setEnvironment(ep.Name, env)
	}

	inventory, err := sess.Inventory(ctx)
	if err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	end := p.now()
	for _, dc := range inventory {
		for _, cluster := range dc.Clusters {
			p.pollCluster(ctx, sess, env, cluster, end)
		}
	}
	return nil
}

// pollCluster issues one host-scope batch for the whole cluster and one
// vm-scope batch per host. A failing batch skips that unit of work only.
func (p *Poller) pollCluster(ctx context.Context, sess vsphere.Session, env *Environment, cluster model.Cluster, end time.Time) {
	clusterName := cluster.Ref.Name
	p.logger.Info("found hosts in cluster", "cluster", clusterName, "hosts", len(cluster.Hosts))

	hostRefs := make([]model.EntityRef, 0, len(cluster.Hosts))
	for _, h := range cluster.Hosts {
		hostRefs = append(hostRefs, h.Ref)
	}
	results, err := CollectEntityMetrics(ctx, sess, env.HostMetrics, hostRefs, end, p.pollInterval)
	if err != nil {
		p.logger.Warn("host batch query failed", "cluster", clusterName, "error", err)
	} else {
		p.dispatchResults(ctx, env, clusterName, results)
	}

	for _, host := range cluster.Hosts {
		p.logger.Info("found vms in host", "host", host.Ref.Name, "vms", len(host.VMs))
		vmRefs := make([]model.EntityRef, 0, len(host.VMs))
		for _, vm := range host.VMs {
			vmRefs = append(vmRefs, vm.Ref)
		}
		results, err := CollectEntityMetrics(ctx, sess, env.VMMetrics, vmRefs, end, p.pollInterval)
		if err != nil {
			p.logger.Warn("vm batch query failed", "cluster", clusterName, "host", host.Ref.Name, "error", err)
			continue
		}
		p.dispatchResults(ctx, env, clusterName, results)
	}
}

// dispatchResults flattens batched query results into keyed samples and
// forwards them to the sink.
func (p *Poller) dispatchResults(ctx context.Context, env *Environment, clusterName string, results []model.EntityMetrics) {
	verbose := env.Endpoint.Verbose
	for _, result := range results {
		for _, series := range result.Series {
			counter, ok := env.Counters[series.Metric.CounterID]
			if !ok {
				p.logger.Debug("skipping series with unknown counter id",
					"endpoint", env.Endpoint.Name, "counter_id", series.Metric.CounterID)
				continue
			}
			key := naming.MetricKey(naming.KeyParts{
				Cluster:    clusterName,
				ObjectType: string(result.Entity.Kind),
				Entity:     result.Entity.Name,
				Group:      counter.Group,
				Instance:   series.Metric.Instance,
				Rollup:     string(counter.Rollup),
				Counter:    counter.Name,
				Unit:       counter.Unit,
			})
			if len(key) > naming.MaxKeyLen {
				p.logger.Debug("metric key exceeds sink limit", "key", key, "len", len(key))
			}
			for i, value := range series.Values {
				if i >= len(result.SampleTimes) {
					break
				}
				ts := result.SampleTimes[i].Unix()
				if p.dstActive(p.now()) {
					ts += dstOffset
				}
				sample := model.Sample{Timestamp: ts, Key: key, Value: value}
				if err := p.sink.Send(ctx, sample); err != nil {
					p.logger.Warn("sample dispatch failed", "key", key, "error", err)
					continue
				}
				if verbose {
					p.logger.Debug("dispatched sample", "key", key, "value", value, "ts", ts)
				}
			}
		}
	}
}

func (p *Poller) environment(name string) *Environment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.envs[name]
}

func (p *Poller) setEnvironment(name string, env *Environment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs[name] = env
}
