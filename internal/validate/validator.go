package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/upmusync/internal/snapshot"
)

// Rule identifiers.
const (
	RuleMalformedStream = "malformed-stream"
	RuleMissingUUID     = "missing-uuid"
	RuleUUIDFormat      = "uuid-format"
	RuleDuplicateUUID   = "duplicate-uuid"
	RuleDuplicateAlias  = "duplicate-alias"
	RuleAliasShadowsKey = "alias-shadows-device"
	RuleRetryMarker     = "retry-marker"
	RuleNoStreams       = "no-streams"
)

type streamRef struct {
	device string
	stream string
}

func (r streamRef) String() string { return r.device + "/" + r.stream }

// Validate checks every device of s. Issues are ordered by device key and
// then stream name.
func Validate(s snapshot.Snapshot) *Result {
	res := &Result{Devices: len(s)}
	uuids := map[string][]streamRef{}
	aliases := map[string][]string{}

	for _, key := range s.Keys() {
		d := s[key]
		if d.Status == snapshot.StatusPendingRetry || d.MustUpdate {
			res.add(Issue{
				Device: key, Severity: SeverityWarning, Rule: RuleRetryMarker,
				Message: "retry markers belong in the previous snapshot and are ignored here",
			})
		}
		if alias, ok := d.Alias(); ok {
			aliases[alias] = append(aliases[alias], key)
			if _, shadow := s[alias]; shadow && alias != key {
				res.add(Issue{
					Device: key, Severity: SeverityWarning, Rule: RuleAliasShadowsKey,
					Message: fmt.Sprintf("alias %q is also a device key; forcing it selects both devices", alias),
				})
			}
		}

		names := d.StreamNames()
		if len(names) == 0 {
			res.add(Issue{Device: key, Severity: SeverityInfo, Rule: RuleNoStreams, Message: "device has no streams"})
		}
		for _, name := range names {
			res.Streams++
			if id, ok := checkStream(res, key, name, d.Payload[name]); ok {
				uuids[id] = append(uuids[id], streamRef{device: key, stream: name})
			}
		}
	}

	for _, id := range sortedKeys(uuids) {
		refs := uuids[id]
		if len(refs) < 2 {
			continue
		}
		for _, ref := range refs {
			res.add(Issue{
				Device: ref.device, Stream: ref.stream, Severity: SeverityError, Rule: RuleDuplicateUUID,
				Message: fmt.Sprintf("uuid %s is shared by %s", id, joinRefs(refs)),
			})
		}
	}
	for _, alias := range sortedKeys(aliases) {
		keys := aliases[alias]
		if len(keys) < 2 {
			continue
		}
		for _, key := range keys {
			res.add(Issue{
				Device: key, Severity: SeverityError, Rule: RuleDuplicateAlias,
				Message: fmt.Sprintf("alias %q is declared by %s", alias, strings.Join(keys, ", ")),
			})
		}
	}

	sort.SliceStable(res.Issues, func(i, j int) bool {
		a, b := res.Issues[i], res.Issues[j]
		if a.Device != b.Device {
			return a.Device < b.Device
		}
		return a.Stream < b.Stream
	})
	return res
}

// checkStream returns the stream's uuid when it has a usable one.
func checkStream(res *Result, device, name string, entry any) (string, bool) {
	fields, ok := entry.(map[string]any)
	if !ok {
		res.add(Issue{
			Device: device, Stream: name, Severity: SeverityError, Rule: RuleMalformedStream,
			Message: "stream entry must be a section",
		})
		return "", false
	}
	id, _ := fields[snapshot.KeyUUID].(string)
	if id == "" {
		res.add(Issue{
			Device: device, Stream: name, Severity: SeverityError, Rule: RuleMissingUUID,
			Message: "stream has no uuid",
		})
		return "", false
	}
	// The store treats uuids as opaque keys, so a malformed one still syncs.
	if _, err := uuid.Parse(id); err != nil {
		res.add(Issue{
			Device: device, Stream: name, Severity: SeverityWarning, Rule: RuleUUIDFormat,
			Message: fmt.Sprintf("uuid %q is not a valid UUID: %v", id, err),
		})
	}
	return id, true
}

func (r *Result) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinRefs(refs []streamRef) string {
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = ref.String()
	}
	return strings.Join(parts, ", ")
}
