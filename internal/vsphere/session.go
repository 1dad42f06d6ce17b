package vsphere

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/xenocryst1/collectsphere/internal/config"
	"github.com/xenocryst1/collectsphere/internal/model"
)

// discoveryLevel is the statistics level the first (finest, five-minute)
// historical interval is elevated to before discovery, so every rollup type
// becomes queryable.
const discoveryLevel int32 = 2

// GovmomiConnector dials the vSphere SDK endpoint over SOAP.
type GovmomiConnector struct {
	logger   *slog.Logger
	insecure bool
}

func NewConnector(logger *slog.Logger, insecure bool) *GovmomiConnector {
	return &GovmomiConnector{logger: logger, insecure: insecure}
}

func (c *GovmomiConnector) Connect(ctx context.Context, ep config.Endpoint) (Session, error) {
	u, err := soap.ParseURL(fmt.Sprintf("https://%s:%d/sdk", ep.Host, ep.Port))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	u.User = url.UserPassword(ep.Username, ep.Password)

	client, err := govmomi.NewClient(ctx, u, c.insecure)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", ep.Host, err)
	}
	return &session{
		client: client,
		pc:     property.DefaultCollector(client.Client),
		perf:   *client.ServiceContent.PerfManager,
		logger: c.logger.With("endpoint", ep.Name),
	}, nil
}

type session struct {
	client *govmomi.Client
	pc     *property.Collector
	perf   types.ManagedObjectReference
	logger *slog.Logger
}

func (s *session) CounterCatalog(ctx context.Context) ([]model.CounterInfo, error) {
	var pm mo.PerformanceManager
	if err := s.pc.RetrieveOne(ctx, s.perf, []string{"perfCounter"}, &pm); err != nil {
		return nil, fmt.Errorf("retrieve counter catalog: %w", err)
	}
	out := make([]model.CounterInfo, 0, len(pm.PerfCounter))
	for _, c := range pm.PerfCounter {
		out = append(out, model.CounterInfo{
			ID:     c.Key,
			Group:  c.GroupInfo.GetElementDescription().Key,
			Name:   c.NameInfo.GetElementDescription().Key,
			Unit:   c.UnitInfo.GetElementDescription().Key,
			Rollup: model.RollupType(c.RollupType),
		})
	}
	return out, nil
}

func (s *session) DiscoveryPeriods(ctx context.Context) ([]int32, error) {
	var pm mo.PerformanceManager
	if err := s.pc.RetrieveOne(ctx, s.perf, []string{"historicalInterval"}, &pm); err != nil {
		return nil, fmt.Errorf("retrieve historical intervals: %w", err)
	}
	if len(pm.HistoricalInterval) == 0 {
		return []int32{RealtimeIntervalSeconds}, nil
	}

	interval := pm.HistoricalInterval[0]
	interval.Level = discoveryLevel
	req := types.UpdatePerfInterval{This: s.perf, Interval: interval}
	if _, err := methods.UpdatePerfInterval(ctx, s.client.Client, &req); err != nil {
		return nil, fmt.Errorf("elevate perf interval %d: %w", interval.Key, err)
	}
	return []int32{interval.SamplingPeriod, RealtimeIntervalSeconds}, nil
}

func (s *session) AvailableMetrics(ctx context.Context, entity model.EntityRef, periodSeconds int32) ([]model.MetricDescriptor, error) {
	req := types.QueryAvailablePerfMetric{
		This:       s.perf,
		Entity:     moRef(entity),
		IntervalId: periodSeconds,
	}
	resp, err := methods.QueryAvailablePerfMetric(ctx, s.client.Client, &req)
	if err != nil {
		return nil, fmt.Errorf("query available metrics for %s: %w", entity.ID, err)
	}
	out := make([]model.MetricDescriptor, 0, len(resp.Returnval))
	for _, id := range resp.Returnval {
		out = append(out, model.MetricDescriptor{CounterID: id.CounterId, Instance: id.Instance})
	}
	return out, nil
}

func (s *session) Inventory(ctx context.Context) ([]model.Datacenter, error) {
	dcs, err := s.datacenters(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Datacenter, 0, len(dcs))
	for _, dc := range dcs {
		clusters, err := s.clusters(ctx, dc.HostFolder)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Datacenter{
			Ref:      model.EntityRef{ID: dc.Self.Value, Kind: model.KindDatacenter, Name: dc.Name},
			Clusters: clusters,
		})
	}
	return out, nil
}

func (s *session) ProbeHost(ctx context.Context) (model.EntityRef, bool, error) {
	dcs, err := s.datacenters(ctx)
	if err != nil {
		return model.EntityRef{}, false, err
	}
	for _, dc := range dcs {
		var folder mo.Folder
		if err := s.pc.RetrieveOne(ctx, dc.HostFolder, []string{"childEntity"}, &folder); err != nil {
			return model.EntityRef{}, false, fmt.Errorf("retrieve host folder: %w", err)
		}
		for _, child := range folder.ChildEntity {
			if child.Type != string(model.KindCluster) && child.Type != "ComputeResource" {
				continue
			}
			var cr mo.ComputeResource
			if err := s.pc.RetrieveOne(ctx, child, []string{"host"}, &cr); err != nil {
				return model.EntityRef{}, false, fmt.Errorf("retrieve compute resource: %w", err)
			}
			if len(cr.Host) == 0 {
				continue
			}
			hosts, err := s.hostSystems(ctx, cr.Host)
			if err != nil {
				return model.EntityRef{}, false, err
			}
			for _, h := range hosts {
				if hostPoweredOn(h) {
					return hostRef(h), true, nil
				}
			}
		}
	}
	return model.EntityRef{}, false, nil
}

func (s *session) ProbeVM(ctx context.Context) (model.EntityRef, bool, error) {
	dcs, err := s.datacenters(ctx)
	if err != nil {
		return model.EntityRef{}, false, err
	}
	var queue []types.ManagedObjectReference
	for _, dc := range dcs {
		queue = append(queue, dc.VmFolder)
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		switch model.EntityKind(ref.Type) {
		case model.KindFolder:
			var folder mo.Folder
			if err := s.pc.RetrieveOne(ctx, ref, []string{"childEntity"}, &folder); err != nil {
				return model.EntityRef{}, false, fmt.Errorf("retrieve vm folder: %w", err)
			}
			queue = append(queue, folder.ChildEntity...)
		case model.KindVApp:
			var vapp mo.VirtualApp
			if err := s.pc.RetrieveOne(ctx, ref, []string{"vm"}, &vapp); err != nil {
				return model.EntityRef{}, false, fmt.Errorf("retrieve vapp: %w", err)
			}
			queue = append(queue, vapp.Vm...)
		case model.KindVM:
			var vm mo.VirtualMachine
			if err := s.pc.RetrieveOne(ctx, ref, []string{"name", "summary.runtime.powerState"}, &vm); err != nil {
				return model.EntityRef{}, false, fmt.Errorf("retrieve vm: %w", err)
			}
			if vm.Summary.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOn {
				return model.EntityRef{ID: vm.Self.Value, Kind: model.KindVM, Name: vm.Name}, true, nil
			}
		}
	}
	return model.EntityRef{}, false, nil
}

func (s *session) QueryPerf(ctx context.Context, specs []model.QuerySpec) ([]model.EntityMetrics, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	entities := make(map[string]model.EntityRef, len(specs))
	querySpecs := make([]types.PerfQuerySpec, 0, len(specs))
	for _, spec := range specs {
		entities[spec.Entity.ID] = spec.Entity
		start, end := spec.Start, spec.End
		querySpecs = append(querySpecs, types.PerfQuerySpec{
			Entity:     moRef(spec.Entity),
			MetricId:   toPerfMetricIds(spec.Metrics),
			StartTime:  &start,
			EndTime:    &end,
			IntervalId: spec.IntervalSeconds,
			Format:     string(types.PerfFormatNormal),
		})
	}

	resp, err := methods.QueryPerf(ctx, s.client.Client, &types.QueryPerf{This: s.perf, QuerySpec: querySpecs})
	if err != nil {
		return nil, fmt.Errorf("query perf: %w", err)
	}

	out := make([]model.EntityMetrics, 0, len(resp.Returnval))
	for _, base := range resp.Returnval {
		em, ok := base.(*types.PerfEntityMetric)
		if !ok {
			continue
		}
		entity, known := entities[em.Entity.Value]
		if !known {
			entity = model.EntityRef{ID: em.Entity.Value, Kind: model.EntityKind(em.Entity.Type)}
		}
		result := model.EntityMetrics{Entity: entity}
		for _, info := range em.SampleInfo {
			result.SampleTimes = append(result.SampleTimes, info.Timestamp)
		}
		for _, v := range em.Value {
			series, ok := v.(*types.PerfMetricIntSeries)
			if !ok {
				continue
			}
			values := make([]float64, 0, len(series.Value))
			for _, n := range series.Value {
				values = append(values, float64(n))
			}
			result.Series = append(result.Series, model.MetricSeries{
				Metric: model.MetricDescriptor{CounterID: series.Id.CounterId, Instance: series.Id.Instance},
				Values: values,
			})
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.client.Logout(ctx)
}

func (s *session) datacenters(ctx context.Context) ([]mo.Datacenter, error) {
	var rootFolder mo.Folder
	if err := s.pc.RetrieveOne(ctx, s.client.ServiceContent.RootFolder, []string{"childEntity"}, &rootFolder); err != nil {
		return nil, fmt.Errorf("retrieve root folder: %w", err)
	}
	var refs []types.ManagedObjectReference
	for _, ref := range rootFolder.ChildEntity {
		if ref.Type == string(model.KindDatacenter) {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	var dcs []mo.Datacenter
	if err := s.pc.Retrieve(ctx, refs, []string{"name", "hostFolder", "vmFolder"}, &dcs); err != nil {
		return nil, fmt.Errorf("retrieve datacenters: %w", err)
	}
	return dcs, nil
}

func (s *session) clusters(ctx context.Context, hostFolder types.ManagedObjectReference) ([]model.Cluster, error) {
	var folder mo.Folder
	if err := s.pc.RetrieveOne(ctx, hostFolder, []string{"childEntity"}, &folder); err != nil {
		return nil, fmt.Errorf("retrieve host folder: %w", err)
	}
	var out []model.Cluster
	for _, ref := range folder.ChildEntity {
		if ref.Type != string(model.KindCluster) {
			continue
		}
		var ccr mo.ClusterComputeResource
		if err := s.pc.RetrieveOne(ctx, ref, []string{"name", "host"}, &ccr); err != nil {
			return nil, fmt.Errorf("retrieve cluster: %w", err)
		}
		hosts, err := s.hosts(ctx, ccr.Host)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Cluster{
			Ref:   model.EntityRef{ID: ref.Value, Kind: model.KindCluster, Name: ccr.Name},
			Hosts: hosts,
		})
	}
	return out, nil
}

func (s *session) hosts(ctx context.Context, refs []types.ManagedObjectReference) ([]model.Host, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var systems []mo.HostSystem
	if err := s.pc.Retrieve(ctx, refs, []string{"name", "vm", "summary.runtime.powerState"}, &systems); err != nil {
		return nil, fmt.Errorf("retrieve hosts: %w", err)
	}
	out := make([]model.Host, 0, len(systems))
	for _, h := range systems {
		vms, err := s.vms(ctx, h.Vm)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Host{
			Ref:       hostRef(h),
			PoweredOn: hostPoweredOn(h),
			VMs:       vms,
		})
	}
	return out, nil
}

func (s *session) hostSystems(ctx context.Context, refs []types.ManagedObjectReference) ([]mo.HostSystem, error) {
	var systems []mo.HostSystem
	if err := s.pc.Retrieve(ctx, refs, []string{"name", "summary.runtime.powerState"}, &systems); err != nil {
		return nil, fmt.Errorf("retrieve hosts: %w", err)
	}
	return systems, nil
}

func (s *session) vms(ctx context.Context, refs []types.ManagedObjectReference) ([]model.VM, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var machines []mo.VirtualMachine
	if err := s.pc.Retrieve(ctx, refs, []string{"name", "summary.runtime.powerState"}, &machines); err != nil {
		return nil, fmt.Errorf("retrieve vms: %w", err)
	}
	out := make([]model.VM, 0, len(machines))
	for _, vm := range machines {
		out = append(out, model.VM{
			Ref:       model.EntityRef{ID: vm.Self.Value, Kind: model.KindVM, Name: vm.Name},
			PoweredOn: vm.Summary.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOn,
		})
	}
	return out, nil
}

func moRef(e model.EntityRef) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: string(e.Kind), Value: e.ID}
}

func toPerfMetricIds(metrics []model.MetricDescriptor) []types.PerfMetricId {
	out := make([]types.PerfMetricId, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, types.PerfMetricId{CounterId: m.CounterID, Instance: m.Instance})
	}
	return out
}

func hostRef(h mo.HostSystem) model.EntityRef {
	return model.EntityRef{ID: h.Self.Value, Kind: model.KindHost, Name: h.Name}
}

func hostPoweredOn(h mo.HostSystem) bool {
	return h.Summary.Runtime != nil && h.Summary.Runtime.PowerState == types.HostSystemPowerStatePoweredOn
}
