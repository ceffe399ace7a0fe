package snapshot

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/upmusync/internal/util/sets"
	"git.home.luguber.info/inful/upmusync/internal/util/tree"
)

// Record is a device's configuration tree: stream entries, shared metadata
// fields and control keys, keyed by name.
type Record = map[string]any

const (
	// ControlPrefix marks keys that carry directives rather than metadata.
	ControlPrefix = "%"
	// RetryPrefix marks a pending-retry device key in the on-disk encoding.
	RetryPrefix = "?"

	KeyAlias      = "%alias"
	KeyMustUpdate = "%mustupdate"
	KeyUUID       = "uuid"
)

// StreamNames lists every stream a uPMU may report. Not every device has all of them.
var StreamNames = sets.New(
	"L1MAG", "L1ANG", "L2MAG", "L2ANG", "L3MAG", "L3ANG",
	"C1MAG", "C1ANG", "C2MAG", "C2ANG", "C3MAG", "C3ANG",
	"LSTATE", "FUND_W", "FUND_VAR", "FUND_VA", "FUND_DPF",
	"FREQ_L1_1S", "FREQ_L1_C37",
)

// IsStreamName reports whether key names a stream entry.
func IsStreamName(key string) bool { return StreamNames.Has(key) }

// IsControlKey reports whether key is a directive such as %alias.
func IsControlKey(key string) bool { return strings.HasPrefix(key, ControlPrefix) }

// Status tags a device in a snapshot.
type Status int

const (
	// StatusActive is a device whose record reflects what was last written.
	StatusActive Status = iota
	// StatusPendingRetry is a device that was removed from the desired config
	// but whose metadata could not be deleted yet.
	StatusPendingRetry
)

func (s Status) String() string {
	if s == StatusPendingRetry {
		return "pending_retry"
	}
	return "active"
}

// Device is one entry of a snapshot.
type Device struct {
	Status  Status
	Payload Record
	// MustUpdate forces the next run to rewrite this device's metadata
	// whether or not its record changed.
	MustUpdate bool
}

// NewDevice wraps payload as an active device.
func NewDevice(payload Record) *Device {
	if payload == nil {
		payload = Record{}
	}
	return &Device{Status: StatusActive, Payload: payload}
}

// Clone returns a deep copy of d.
func (d *Device) Clone() *Device {
	return &Device{Status: d.Status, Payload: tree.Copy(d.Payload), MustUpdate: d.MustUpdate}
}

// Alias returns the %alias directive when it is set to a non-empty string.
func (d *Device) Alias() (string, bool) {
	alias, ok := d.Payload[KeyAlias].(string)
	return alias, ok && alias != ""
}

// StreamNames returns the stream entries present on the device, sorted.
func (d *Device) StreamNames() []string {
	var names []string
	for k := range d.Payload {
		if IsStreamName(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// SharedMetadata returns a copy of the payload without stream entries and
// control keys: the fields every stream of the device inherits.
func (d *Device) SharedMetadata() Record {
	shared := Record{}
	for k, v := range d.Payload {
		if IsStreamName(k) || IsControlKey(k) {
			continue
		}
		shared[k] = v
	}
	return tree.Copy(shared)
}
