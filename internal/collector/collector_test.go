package collector

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
	"github.com/xenocryst1/collectsphere/internal/vsphere"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession implements vsphere.Session against canned data and records
// every batched query it receives.
type fakeSession struct {
	catalog   []model.CounterInfo
	periods   []int32
	inventory []model.Datacenter
	probeHost *model.EntityRef
	probeVM   *model.EntityRef

	availableFn func(entity model.EntityRef, period int32) []model.MetricDescriptor
	queryFn     func(specs []model.QuerySpec) ([]model.EntityMetrics, error)

	catalogCalls int
	queries      [][]model.QuerySpec
	closed       bool
}

var _ vsphere.Session = (*fakeSession)(nil)

func (f *fakeSession) CounterCatalog(ctx context.Context) ([]model.CounterInfo, error) {
	f.catalogCalls++
	return f.catalog, nil
}

func (f *fakeSession) DiscoveryPeriods(ctx context.Context) ([]int32, error) {
	if f.periods == nil {
		return []int32{vsphere.RealtimeIntervalSeconds}, nil
	}
	return f.periods, nil
}

func (f *fakeSession) AvailableMetrics(ctx context.Context, entity model.EntityRef, period int32) ([]model.MetricDescriptor, error) {
	if f.availableFn == nil {
		return nil, nil
	}
	return f.availableFn(entity, period), nil
}

func (f *fakeSession) Inventory(ctx context.Context) ([]model.Datacenter, error) {
	return f.inventory, nil
}

func (f *fakeSession) ProbeHost(ctx context.Context) (model.EntityRef, bool, error) {
	if f.probeHost == nil {
		return model.EntityRef{}, false, nil
	}
	return *f.probeHost, true, nil
}

func (f *fakeSession) ProbeVM(ctx context.Context) (model.EntityRef, bool, error) {
	if f.probeVM == nil {
		return model.EntityRef{}, false, nil
	}
	return *f.probeVM, true, nil
}

func (f *fakeSession) QueryPerf(ctx context.Context, specs []model.QuerySpec) ([]model.EntityMetrics, error) {
	f.queries = append(f.queries, specs)
	if f.queryFn == nil {
		return nil, nil
	}
	return f.queryFn(specs)
}

func (f *fakeSession) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

type fakeConnector struct {
	session *fakeSession
	err     error
}

func (c *fakeConnector) Connect(ctx context.Context, ep config.Endpoint) (vsphere.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

// captureSink records every dispatched sample.
type captureSink struct {
	mu      sync.Mutex
	samples []model.Sample
}

func (s *captureSink) Send(ctx context.Context, sample model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *captureSink) Close(ctx context.Context) error {
	return nil
}

func (s *captureSink) all() []model.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Sample(nil), s.samples...)
}
