// Package vsphere speaks to the virtualization control plane. The collector
// core only sees the Connector/Session contracts; the govmomi-backed
// implementation lives in session.go.
package vsphere

import (
	"context"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
)

// RealtimeIntervalSeconds is the control plane's fixed real-time sampling
// bucket. Batched performance queries always use it, independent of the
// polling interval.
const RealtimeIntervalSeconds int32 = 20

// Connector opens a fresh authenticated session per poll cycle. No pooling:
// a failed cycle leaves nothing behind for the next one.
type Connector interface {
	Connect(ctx context.Context, ep config.Endpoint) (Session, error)
}

// Session is one authenticated connection to a control-plane endpoint.
type Session interface {
	// CounterCatalog lists the endpoint's full performance-counter catalog.
	CounterCatalog(ctx context.Context) ([]model.CounterInfo, error)

	// DiscoveryPeriods returns the sampling periods to probe during metric
	// discovery: the first (finest) historical interval, elevated to its most
	// verbose statistics level, plus the fixed real-time period.
	DiscoveryPeriods(ctx context.Context) ([]int32, error)

	// AvailableMetrics lists the queryable metric descriptors of one entity
	// at the given sampling period.
	AvailableMetrics(ctx context.Context, entity model.EntityRef, periodSeconds int32) ([]model.MetricDescriptor, error)

	// Inventory walks datacenters down to clusters, hosts and their VMs.
	Inventory(ctx context.Context) ([]model.Datacenter, error)

	// ProbeHost returns a powered-on host usable for metric discovery.
	ProbeHost(ctx context.Context) (model.EntityRef, bool, error)

	// ProbeVM returns a powered-on virtual machine usable for metric
	// discovery, searching the whole VM folder tree, not only clusters.
	ProbeVM(ctx context.Context) (model.EntityRef, bool, error)

	// QueryPerf issues one batched performance query covering all specs.
	QueryPerf(ctx context.Context, specs []model.QuerySpec) ([]model.EntityMetrics, error)

	Close(ctx context.Context) error
}
