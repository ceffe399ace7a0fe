package errors

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("duplicate uuid").Build(), 2},
		{"config", ConfigError("unknown store backend").Build(), 7},
		{"store", StoreError("connect").Build(), 8},
		{"snapshot", SnapshotError("unreadable").Build(), 11},
		{"unclassified", &customError{msg: "unknown error"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	if got := adapter.FormatError(InternalError("boom").Build()); got != "Internal error occurred (use -v for details)" {
		t.Errorf("unexpected internal message %q", got)
	}
	if got := adapter.FormatError(ConfigError("bad config").Build()); !strings.Contains(got, "bad config") {
		t.Errorf("expected config message to surface, got %q", got)
	}
	if got := adapter.FormatError(&customError{msg: "unknown error"}); got != "Error: unknown error" {
		t.Errorf("unexpected unclassified message %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(SnapshotError("cannot write snapshot").WithContext("path", "/tmp/x").Build())

	if code != 11 {
		t.Errorf("expected exit code 11, got %d", code)
	}
	if !strings.Contains(out.String(), "cannot write snapshot") {
		t.Errorf("expected message on output, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "path=/tmp/x") {
		t.Errorf("expected context in log record, got %q", logs.String())
	}
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
