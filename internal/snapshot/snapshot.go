// Package snapshot models the fleet configuration as a set of device records
// and converts it to and from the on-disk trees read by Load and written by Save.
//
// On disk a pending-retry device is stored under its key prefixed with "?",
// and a device whose last update failed carries "%mustupdate = true". In
// memory both are explicit fields of Device.
package snapshot

import (
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/util/tree"
)

// ErrMalformedDevice is returned when a top-level entry is not a section.
var ErrMalformedDevice = ferrors.SnapshotError("malformed device entry").Build()

// Snapshot maps device keys to device records.
type Snapshot map[string]*Device

// Keys returns the device keys in ascending order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, d := range s {
		out[k] = d.Clone()
	}
	return out
}

// PendingRetries counts devices that are pending retry or must be updated.
func (s Snapshot) PendingRetries() int {
	n := 0
	for _, d := range s {
		if d.Status == StatusPendingRetry || d.MustUpdate {
			n++
		}
	}
	return n
}

// FromTree decodes a configuration tree. When a device appears both plainly
// and with the retry prefix, the plain entry wins.
func FromTree(t map[string]any) (Snapshot, error) {
	s := make(Snapshot, len(t))
	for rawKey, v := range t {
		key, status := rawKey, StatusActive
		if strings.HasPrefix(rawKey, RetryPrefix) {
			key, status = strings.TrimPrefix(rawKey, RetryPrefix), StatusPendingRetry
		}
		payload, ok := v.(map[string]any)
		if !ok || key == "" {
			return nil, ferrors.SnapshotError(ErrMalformedDevice.Message()).
				WithContext("device", rawKey).
				Build()
		}
		if existing, ok := s[key]; ok && existing.Status == StatusActive {
			continue
		}

		payload = tree.Copy(payload)
		mustUpdate := isTrue(payload[KeyMustUpdate])
		delete(payload, KeyMustUpdate)
		s[key] = &Device{Status: status, Payload: payload, MustUpdate: mustUpdate}
	}
	return s, nil
}

// Tree encodes s for writing.
func (s Snapshot) Tree() map[string]any {
	out := make(map[string]any, len(s))
	for key, d := range s {
		payload := tree.Copy(d.Payload)
		if payload == nil {
			payload = map[string]any{}
		}
		if d.MustUpdate {
			payload[KeyMustUpdate] = "true"
		}
		if d.Status == StatusPendingRetry {
			key = RetryPrefix + key
		}
		out[key] = payload
	}
	return out
}

func isTrue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	default:
		return false
	}
}
