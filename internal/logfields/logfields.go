package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDevice     = "device"
	KeyStream     = "stream"
	KeyUUID       = "uuid"
	KeyAlias      = "alias"
	KeyAction     = "action"
	KeyReason     = "reason"
	KeyPath       = "path"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyRunID      = "run_id"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Device(key string) slog.Attr     { return slog.String(KeyDevice, key) }
func Stream(name string) slog.Attr    { return slog.String(KeyStream, name) }
func UUID(id string) slog.Attr        { return slog.String(KeyUUID, id) }
func Alias(a string) slog.Attr        { return slog.String(KeyAlias, a) }
func Action(a string) slog.Attr       { return slog.String(KeyAction, a) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
