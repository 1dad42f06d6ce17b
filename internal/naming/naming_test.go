package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateDeviceIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "naa serial keeps last 12",
			in:   "naa.6000c29012345678deadbeefcafef00d",
			want: "naabeefcafef00d",
		},
		{
			name: "t10 serial keeps last 12",
			in:   "t10.5000C500A1B2C3D4E5F60708",
			want: "t10c3d4e5f60708",
		},
		{
			name: "ata identifier concatenates first two groups",
			in:   "t10.ATA_____Samsung_SSD_850__S21NNXAG_____",
			want: "samsungssd",
		},
		{
			name: "short identifier kept whole",
			in:   "naa.cafe",
			want: "naacafe",
		},
		{
			name: "non device name untouched",
			in:   "local-datastore",
			want: "local-ds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.in))
		})
	}
}

func TestTruncateDeviceIdentifierIdempotent(t *testing.T) {
	out := Truncate("naa.6000c29012345678deadbeefcafef00d")
	// The result no longer carries the naa./t10. prefix, so a second pass
	// must leave it alone.
	assert.Equal(t, out, Truncate(out))
}

func TestTruncateDisplayNameWithUUID(t *testing.T) {
	in := "WebServer01 (550e8400-e29b-41d4-a716-446655440000)-prod"
	assert.Equal(t, "webser-550e84-prod", Truncate(in))
}

func TestTruncateStorageUUID(t *testing.T) {
	in := "snap-541822a1-d2dcad52-129a-0025909ac654-vol"
	assert.Equal(t, "snap-541822a1-d2d-vol", Truncate(in))
}

func TestTruncateVocabulary(t *testing.T) {
	assert.Equal(t, "KBps", Truncate("kiloBytesPerSecond"))
	assert.Equal(t, "KB", Truncate("kiloBytes"))
	assert.Equal(t, "MB", Truncate("megaBytes"))
	assert.Equal(t, "ms", Truncate("millisecond"))
	assert.Equal(t, "perc", Truncate("percent"))
	assert.Equal(t, "num", Truncate("number"))
	assert.Equal(t, "ds", Truncate("datastore"))
}

func TestTruncateNoMatchPassesThrough(t *testing.T) {
	for _, s := range []string{"", "cpu", "usage", "vmnic0", "DISKFILE"} {
		assert.Equal(t, s, Truncate(s))
	}
}

func TestShortHostname(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"esx01.lab.example.com", "esx01"},
		{"esx01", "esx01"},
		{"web-frontend-7", "web-frontend-7"},
		{"10.0.0.1", "10.0.0.1"},
		{"-bad.example.com", "-bad.example.com"},
		{"host.x", "host.x"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ShortHostname(tc.in), "input %q", tc.in)
	}
}

func TestAbbrevObjectType(t *testing.T) {
	assert.Equal(t, "HS", AbbrevObjectType("HostSystem"))
	assert.Equal(t, "VM", AbbrevObjectType("VirtualMachine"))
	assert.Equal(t, "Datacenter", AbbrevObjectType("Datacenter"))
}

func TestMetricKey(t *testing.T) {
	key := MetricKey(KeyParts{
		Cluster:    "Prod Cluster",
		ObjectType: "HostSystem",
		Entity:     "esx01.lab.example.com",
		Group:      "cpu",
		Instance:   "",
		Rollup:     "average",
		Counter:    "usage",
		Unit:       "percent",
	})
	assert.Equal(t, "Prod_Cluster.HS.esx01.cpu.all.average.usage.perc", key)
	assert.LessOrEqual(t, len(key), MaxKeyLen)
}

func TestMetricKeyEmptyInstanceIsAll(t *testing.T) {
	key := MetricKey(KeyParts{
		Cluster:    "c1",
		ObjectType: "VirtualMachine",
		Entity:     "vm1",
		Group:      "datastore",
		Instance:   "",
		Rollup:     "latest",
		Counter:    "read",
		Unit:       "kiloBytesPerSecond",
	})
	assert.Equal(t, "c1.VM.vm1.ds.all.latest.read.KBps", key)
}

func TestMetricKeyInstanceTruncated(t *testing.T) {
	key := MetricKey(KeyParts{
		Cluster:    "c1",
		ObjectType: "HostSystem",
		Entity:     "esx01",
		Group:      "disk",
		Instance:   "naa.6000c29012345678deadbeefcafef00d",
		Rollup:     "average",
		Counter:    "totalLatency",
		Unit:       "millisecond",
	})
	assert.Equal(t, "c1.HS.esx01.disk.naabeefcafef00d.average.totalLatency.ms", key)
	assert.LessOrEqual(t, len(key), MaxKeyLen)
}

func TestMetricKeyReplacesSpaces(t *testing.T) {
	key := MetricKey(KeyParts{
		Cluster:    "c 1",
		ObjectType: "HostSystem",
		Entity:     "esx 01",
		Group:      "cpu",
		Instance:   "0",
		Rollup:     "average",
		Counter:    "usage",
		Unit:       "percent",
	})
	assert.False(t, strings.Contains(key, " "))
}
