// Package naming shrinks the unbounded identifiers coming out of the control
// plane (device serials, display names, datastore UUIDs, unit strings) into
// short, stable tokens and composes them into the final metric key.
//
// Every rule is pure: the same input always yields the same output, which is
// what keeps a counter's key identical across poll cycles. A string that does
// not match a rule's pattern passes through that rule unmodified.
package naming

import (
	"regexp"
	"strings"
)

// MaxKeyLen is the metric-key ceiling imposed by the sink. The per-segment
// rules below keep composed keys under it for all but pathological names;
// composition itself never hard-truncates.
const MaxKeyLen = 63

var (
	// NAA/T10 canonical device names, e.g. naa.6000c29012345678deadbeefcafef00d.
	deviceIDPattern = regexp.MustCompile(`(?i)^(naa|t10)\.(.+)$`)
	ataPattern      = regexp.MustCompile(`(?i)^ata_+(.+?)_+(.+?)_+`)

	// vCloud Director display names: "<name> (<8-4-4-4-12 uuid>)<suffix>".
	displayUUIDPattern = regexp.MustCompile(`(?i)^(.*)\s\(([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\)(.*)$`)

	// Bare VMFS datastore UUIDs, e.g. 541822a1-d2dcad52-129a-0025909ac654.
	storageUUIDPattern = regexp.MustCompile(`(?i)^(.*)([0-9a-f]{8}-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{12})(.*)$`)
)

// vocabulary maps long unit and group names onto short tokens. Ordered:
// kiloBytesPerSecond must be rewritten before kiloBytes.
var vocabulary = []struct{ long, short string }{
	{"millisecond", "ms"},
	{"percent", "perc"},
	{"number", "num"},
	{"kiloBytesPerSecond", "KBps"},
	{"kiloBytes", "KB"},
	{"megaBytes", "MB"},
	{"datastore", "ds"},
}

// Truncate rewrites device identifiers, UUID-bearing names and unit/group
// vocabulary into their short forms. Applying it to its own output is a no-op
// for the identifier rules: their results no longer match the input patterns.
func Truncate(s string) string {
	if m := deviceIDPattern.FindStringSubmatch(s); m != nil {
		idType := strings.ToLower(m[1])
		identifier := m[2]
		if a := ataPattern.FindStringSubmatch(identifier); a != nil {
			s = strings.ToLower(a[1] + a[2])
		} else {
			identifier = strings.ToLower(identifier)
			if len(identifier) > 12 {
				identifier = identifier[len(identifier)-12:]
			}
			s = idType + identifier
		}
	}

	if m := displayUUIDPattern.FindStringSubmatch(s); m != nil {
		name := clip(strings.ToLower(m[1]), 6)
		uuid := clip(strings.ToLower(m[2]), 6)
		s = name + "-" + uuid + strings.ToLower(m[3])
	}

	if m := storageUUIDPattern.FindStringSubmatch(s); m != nil {
		s = strings.ToLower(m[1]) + clip(strings.ToLower(m[2]), 12) + strings.ToLower(m[3])
	}

	for _, sub := range vocabulary {
		s = strings.ReplaceAll(s, sub.long, sub.short)
	}
	return s
}

// ShortHostname keeps only the leftmost label of a fully qualified domain
// name. Anything that does not parse as an FQDN passes through unchanged.
func ShortHostname(s string) string {
	if isFQDN(s) {
		return strings.SplitN(s, ".", 2)[0]
	}
	return s
}

// AbbrevObjectType shortens the two entity type tags that appear in metric
// keys. Unknown tags pass through verbatim.
func AbbrevObjectType(kind string) string {
	switch kind {
	case "HostSystem":
		return "HS"
	case "VirtualMachine":
		return "VM"
	}
	return kind
}

// KeyParts holds the raw segments of one metric key, in composition order.
type KeyParts struct {
	Cluster    string
	ObjectType string
	Entity     string
	Group      string
	Instance   string
	Rollup     string
	Counter    string
	Unit       string
}

// MetricKey composes the flat key dispatched to the sink. An empty instance
// label means the control plane aggregated across all sub-instances (e.g. all
// logical CPUs of a host) and becomes the literal "all".
func MetricKey(p KeyParts) string {
	instance := Truncate(p.Instance)
	if instance == "" {
		instance = "all"
	}
	key := strings.Join([]string{
		p.Cluster,
		AbbrevObjectType(p.ObjectType),
		ShortHostname(p.Entity),
		Truncate(p.Group),
		instance,
		Truncate(p.Rollup),
		p.Counter,
		Truncate(p.Unit),
	}, ".")
	return strings.ReplaceAll(key, " ", "_")
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// isFQDN is a re2-friendly rendition of the usual FQDN grammar: Go regexps
// have no lookarounds, so the label constraints are checked directly.
func isFQDN(s string) bool {
	if len(s) < 1 || len(s) > 254 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 || !isAlpha(tld) {
		return false
	}
	for _, label := range labels[:len(labels)-1] {
		if !isFQDNLabel(label) {
			return false
		}
	}
	return true
}

func isFQDNLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	digitsOnly := true
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '-':
			digitsOnly = false
		default:
			return false
		}
	}
	return !digitsOnly
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
