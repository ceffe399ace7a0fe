package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/snapshot/configobj"
)

// Format identifies an on-disk encoding.
type Format string

const (
	FormatConfigObj Format = "configobj"
	FormatYAML      Format = "yaml"
)

// FormatFor picks the encoding from the file extension. Anything that is not
// YAML is read as the nested INI dialect.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatConfigObj
	}
}

// Decode parses data in the given format into a tree.
func Decode(format Format, data []byte) (map[string]any, error) {
	if format != FormatYAML {
		return configobj.Parse(data)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	t, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level is %T, want a mapping", raw)
	}
	return t, nil
}

// Encode renders a tree in the given format.
func Encode(format Format, t map[string]any) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(t)
	}
	return configobj.Marshal(t)
}

// normalizeYAML converts the map[any]any yaml.v3 produces for non-string keys.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			val[k] = normalizeYAML(inner)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalizeYAML(inner)
		}
		return out
	case []any:
		for i := range val {
			val[i] = normalizeYAML(val[i])
		}
		return val
	default:
		return v
	}
}

// Load reads and decodes the snapshot at path.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySnapshot, "read snapshot").
			WithContext("path", path).
			Build()
	}
	t, err := Decode(FormatFor(path), data)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategorySnapshot, "parse snapshot").
			UserAction().
			WithContext("path", path).
			Build()
	}
	s, err := FromTree(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadOptional is Load, except that a missing file yields an empty snapshot.
// The previous snapshot does not exist before the first run.
func LoadOptional(path string) (Snapshot, error) {
	s, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	return s, err
}

// Save writes s to path atomically: the data goes to a temporary file in the
// same directory which then replaces path.
func Save(path string, s Snapshot) error {
	data, err := Encode(FormatFor(path), s.Tree())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategorySnapshot, "encode snapshot").
			WithContext("path", path).
			Build()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.FileSystemError("create snapshot directory").WithCause(err).WithContext("path", dir).Build()
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return ferrors.FileSystemError("create temporary snapshot").WithCause(err).WithContext("path", path).Build()
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return ferrors.FileSystemError("write snapshot").WithCause(err).WithContext("path", tmpName).Build()
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return ferrors.FileSystemError("sync snapshot").WithCause(err).WithContext("path", tmpName).Build()
	}
	if err := tmp.Close(); err != nil {
		return ferrors.FileSystemError("close snapshot").WithCause(err).WithContext("path", tmpName).Build()
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return ferrors.FileSystemError("chmod snapshot").WithCause(err).WithContext("path", tmpName).Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ferrors.FileSystemError("replace snapshot").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
