// Package configobj reads and writes the nested INI dialect used for the uPMU
// fleet configuration:
//
//	# comment
//	[P3001]
//	Location = "Lab, bench 2"
//	%alias = grizzly
//	    [[L1MAG]]
//	    uuid = 6b1d8a5e-...
//
// Each additional bracket opens one more level of nesting. Values are
// strings, or lists when an unquoted comma separates them:
//
//	Tags = feeder, "bay 3"   # []any{"feeder", "bay 3"}
//	Tags = feeder,           # []any{"feeder"}
//	Tags = ,                 # []any{}
//
// A value holding both quote characters plus a comma or '#' is written with
// triple quotes ('''...''' or """..."""), which never start a list.
package configobj

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse decodes data into a tree of map[string]any whose leaves are strings
// or []any lists of strings.
func Parse(data []byte) (map[string]any, error) {
	root := map[string]any{}
	// stack[d] is the section open at depth d; stack[0] is the root.
	stack := []map[string]any{root}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		if line[0] == '[' {
			name, depth, err := parseHeader(line)
			if err != nil {
				return nil, &SyntaxError{Line: lineNo, Msg: err.Error()}
			}
			if depth > len(stack) {
				return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("section %q skips from level %d to level %d", name, len(stack)-1, depth)}
			}
			stack = stack[:depth]
			parent := stack[depth-1]
			if _, exists := parent[name]; exists {
				return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("duplicate section %q", name)}
			}
			section := map[string]any{}
			parent[name] = section
			stack = append(stack, section)
			continue
		}

		key, value, err := parseKeyValue(line)
		if err != nil {
			return nil, &SyntaxError{Line: lineNo, Msg: err.Error()}
		}
		current := stack[len(stack)-1]
		if _, exists := current[key]; exists {
			return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("duplicate key %q", key)}
		}
		current[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return root, nil
}

func parseHeader(line string) (string, int, error) {
	open := 0
	for open < len(line) && line[open] == '[' {
		open++
	}
	closing := 0
	for closing < len(line)-open && line[len(line)-1-closing] == ']' {
		closing++
	}
	if closing != open {
		return "", 0, fmt.Errorf("unbalanced brackets in section header %q", line)
	}
	name := strings.TrimSpace(line[open : len(line)-closing])
	if name == "" {
		return "", 0, fmt.Errorf("empty section name")
	}
	return unquote(name), open, nil
}

func parseKeyValue(line string) (string, any, error) {
	rawKey, rawValue, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", fmt.Errorf("statement declares neither a key nor a section")
	}
	key := strings.TrimSpace(rawKey)
	if key == "" {
		return "", "", fmt.Errorf("empty key")
	}
	value, err := parseValue(strings.TrimSpace(rawValue))
	if err != nil {
		return "", "", fmt.Errorf("key %q: %w", key, err)
	}
	return unquote(key), value, nil
}

func parseValue(raw string) (any, error) {
	for _, triple := range []string{`'''`, `"""`} {
		if strings.HasPrefix(raw, triple) {
			end := strings.Index(raw[3:], triple)
			if end < 0 {
				return nil, fmt.Errorf("unterminated triple-quoted value")
			}
			if err := checkTrailing(raw[end+6:]); err != nil {
				return nil, err
			}
			return raw[3 : end+3], nil
		}
	}
	if strings.TrimSpace(stripComment(raw)) == "," {
		return []any{}, nil
	}

	var items []any
	isList := false
	rest := raw
	for {
		item, tail, err := parseItem(rest)
		if err != nil {
			return nil, err
		}
		tail = strings.TrimSpace(tail)
		if tail == "" || tail[0] == '#' {
			if item != nil {
				items = append(items, *item)
			}
			break
		}
		if tail[0] != ',' {
			return nil, fmt.Errorf("unexpected text after quoted value")
		}
		if item == nil {
			return nil, fmt.Errorf("empty list element")
		}
		items = append(items, *item)
		isList = true
		rest = strings.TrimSpace(tail[1:])
	}

	if !isList {
		if len(items) == 0 {
			return "", nil
		}
		return items[0], nil
	}
	return items, nil
}

// parseItem reads one value or list element from the start of raw. It returns
// nil for an unquoted element with no text.
func parseItem(raw string) (*string, string, error) {
	if raw != "" && (raw[0] == '"' || raw[0] == '\'') {
		q := raw[0]
		end := strings.IndexByte(raw[1:], q)
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated quoted value")
		}
		item := raw[1 : end+1]
		return &item, raw[end+2:], nil
	}
	end := strings.IndexAny(raw, ",#")
	if end < 0 {
		end = len(raw)
	}
	item := strings.TrimSpace(raw[:end])
	if item == "" {
		return nil, raw[end:], nil
	}
	return &item, raw[end:], nil
}

func checkTrailing(rest string) error {
	rest = strings.TrimSpace(rest)
	if rest != "" && rest[0] != '#' {
		return fmt.Errorf("unexpected text after quoted value")
	}
	return nil
}

func stripComment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
