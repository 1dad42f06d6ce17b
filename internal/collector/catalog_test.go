package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenocryst1/collectsphere/internal/model"
)

var testCatalog = []model.CounterInfo{
	{ID: 2, Group: "cpu", Name: "usage", Unit: "percent", Rollup: model.RollupAverage},
	{ID: 6, Group: "mem", Name: "usage", Unit: "percent", Rollup: model.RollupAverage},
	{ID: 130, Group: "disk", Name: "read", Unit: "kiloBytesPerSecond", Rollup: model.RollupAverage},
	{ID: 131, Group: "disk", Name: "write", Unit: "kiloBytesPerSecond", Rollup: model.RollupAverage},
}

func TestResolveCounterIDsEmptyWanted(t *testing.T) {
	resolved := ResolveCounterIDs(testCatalog, nil)
	assert.Empty(t, resolved)
}

func TestResolveCounterIDsMatchesFullName(t *testing.T) {
	resolved := ResolveCounterIDs(testCatalog, []string{"cpu.usage", "disk.read"})
	assert.Len(t, resolved, 2)
	assert.Contains(t, resolved, int32(2))
	assert.Contains(t, resolved, int32(130))
}

func TestResolveCounterIDsCaseSensitive(t *testing.T) {
	resolved := ResolveCounterIDs(testCatalog, []string{"CPU.Usage"})
	assert.Empty(t, resolved)
}

func TestResolveCounterIDsUnknownNamesIgnored(t *testing.T) {
	resolved := ResolveCounterIDs(testCatalog, []string{"net.packetsRx", "mem.usage"})
	assert.Len(t, resolved, 1)
	assert.Contains(t, resolved, int32(6))
}

func TestSelectDescriptorsNoFilterKeepsAll(t *testing.T) {
	discovered := []model.MetricDescriptor{
		{CounterID: 2, Instance: ""},
		{CounterID: 6, Instance: ""},
		{CounterID: 130, Instance: "naa.600"},
	}
	selected := selectDescriptors(discovered, nil, map[int32]struct{}{})
	assert.Equal(t, discovered, selected)
}

func TestSelectDescriptorsFilterKeepsResolvedOnly(t *testing.T) {
	discovered := []model.MetricDescriptor{
		{CounterID: 2, Instance: ""},
		{CounterID: 2, Instance: "0"},
		{CounterID: 6, Instance: ""},
	}
	resolved := ResolveCounterIDs(testCatalog, []string{"cpu.usage"})
	selected := selectDescriptors(discovered, []string{"cpu.usage"}, resolved)
	assert.Len(t, selected, 2)
	for _, d := range selected {
		assert.Equal(t, int32(2), d.CounterID)
	}
}

func TestSelectDescriptorsUnresolvableNamesDropSilently(t *testing.T) {
	discovered := []model.MetricDescriptor{{CounterID: 2, Instance: ""}}
	resolved := ResolveCounterIDs(testCatalog, []string{"does.notexist"})
	selected := selectDescriptors(discovered, []string{"does.notexist"}, resolved)
	assert.Empty(t, selected)
}
