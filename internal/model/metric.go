package model

import "time"

// RollupType tags how the control plane aggregates a counter over a sampling bucket.
type RollupType string

const (
	RollupAverage   RollupType = "average"
	RollupMaximum   RollupType = "maximum"
	RollupMinimum   RollupType = "minimum"
	RollupSummation RollupType = "summation"
	RollupLatest    RollupType = "latest"
	RollupNone      RollupType = "none"
)

// CounterInfo is one entry of the control plane's performance-counter catalog.
// The ID is opaque and assigned per endpoint, so it must never be persisted
// across environment rebuilds.
type CounterInfo struct {
	ID     int32
	Group  string
	Name   string
	Unit   string
	Rollup RollupType
}

// FullName returns the dot-joined name used in counter allow-lists, e.g. "cpu.usage".
func (c CounterInfo) FullName() string {
	return c.Group + "." + c.Name
}

// MetricDescriptor is a queryable (counter, instance) pair for one entity.
// An empty instance means the aggregate across all sub-instances.
type MetricDescriptor struct {
	CounterID int32
	Instance  string
}

// QuerySpec describes one entity's slice of a batched performance query.
// All specs of a batch share the metric list, window and sampling interval.
type QuerySpec struct {
	Entity          EntityRef
	Metrics         []MetricDescriptor
	Start           time.Time
	End             time.Time
	IntervalSeconds int32
}

// MetricSeries holds the sampled values of one metric for one entity.
// Values align index-wise with the sample times of the owning EntityMetrics.
type MetricSeries struct {
	Metric MetricDescriptor
	Values []float64
}

// EntityMetrics is the per-entity result of a batched performance query.
type EntityMetrics struct {
	Entity      EntityRef
	SampleTimes []time.Time
	Series      []MetricSeries
}

// Sample is one flattened time-series point ready for the metrics sink.
type Sample struct {
	Timestamp int64   `json:"timestamp"`
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
}
