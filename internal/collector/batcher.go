package collector

import (
	"context"
	"time"

	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

// CollectEntityMetrics issues one batched performance query for a set of
// sibling entities. Every entity gets its own query spec, but all specs share
// the metric list, the trailing window [end-window, end) and the fixed
// real-time sampling interval, so the whole batch costs a single round trip.
// An empty entity list is a no-op: no call is made.
func CollectEntityMetrics(ctx context.Context, sess vsphere.Session, metrics []model.MetricDescriptor, entities []model.EntityRef, end time.Time, window time.Duration) ([]model.EntityMetrics, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	start := end.Add(-window)
	specs := make([]model.QuerySpec, 0, len(entities))
	for _, entity := range entities {
		specs = append(specs, model.QuerySpec{
			Entity:          entity,
			Metrics:         metrics,
			Start:           start,
			End:             end,
			IntervalSeconds: vsphere.RealtimeIntervalSeconds,
		})
	}
	return sess.QueryPerf(ctx, specs)
}
