// Package collector implements the collection engine: resolving counter
// names against the endpoint's catalog, building the per-endpoint
// environment cache, batching performance queries and dispatching the
// normalized samples on every poll tick.
package collector

import (
	"context"
	"errors"

	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

var (
	// ErrNoPoweredOnHost means metric discovery found no running host to
	// probe. The endpoint's environment cannot be built this cycle.
	ErrNoPoweredOnHost = errors.New("no powered-on host in inventory")

	// ErrNoPoweredOnVM is the virtual-machine equivalent of ErrNoPoweredOnHost.
	ErrNoPoweredOnVM = errors.New("no powered-on virtual machine in inventory")
)

// ResolveCounterIDs maps configured counter names onto the endpoint's opaque
// counter ids. A counter matches when its case-sensitive "group.name" form is
// in wanted. An empty wanted list resolves to an empty set; callers treat
// that as "no filter", not "match nothing".
func ResolveCounterIDs(catalog []model.CounterInfo, wanted []string) map[int32]struct{} {
	resolved := make(map[int32]struct{})
	if len(wanted) == 0 {
		return resolved
	}
	names := make(map[string]struct{}, len(wanted))
	for _, n := range wanted {
		names[n] = struct{}{}
	}
	for _, c := range catalog {
		if _, ok := names[c.FullName()]; ok {
			resolved[c.ID] = struct{}{}
		}
	}
	return resolved
}

// discoverMetrics unions the queryable metric descriptors of one probe entity
// across every discovery sampling period, deduplicated per (counter, instance).
func discoverMetrics(ctx context.Context, sess vsphere.Session, entity model.EntityRef, periods []int32) ([]model.MetricDescriptor, error) {
	seen := make(map[model.MetricDescriptor]struct{})
	var out []model.MetricDescriptor
	for _, period := range periods {
		descriptors, err := sess.AvailableMetrics(ctx, entity, period)
		if err != nil {
			return nil, err
		}
		for _, d := range descriptors {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}

// selectDescriptors applies the allow-list policy of one scope: an empty
// configured name list keeps every discovered descriptor; otherwise only
// descriptors whose counter id resolved are kept. Names that resolved to
// nothing drop their descriptors silently.
func selectDescriptors(discovered []model.MetricDescriptor, configured []string, resolved map[int32]struct{}) []model.MetricDescriptor {
	if len(configured) == 0 {
		return discovered
	}
	var out []model.MetricDescriptor
	for _, d := range discovered {
		if _, ok := resolved[d.CounterID]; ok {
			out = append(out, d)
		}
	}
	return out
}
