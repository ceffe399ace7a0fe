package configobj

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Marshal encodes tree. Within each section scalars are written before
// subsections and keys are sorted, so equal trees always produce equal bytes.
func Marshal(tree map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSection(&buf, tree, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSection(buf *bytes.Buffer, section map[string]any, depth int) error {
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indent := strings.Repeat("    ", max(depth-1, 0))
	var subsections []string
	for _, k := range keys {
		if _, ok := section[k].(map[string]any); ok {
			subsections = append(subsections, k)
			continue
		}
		value, err := formatValue(section[k])
		if err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		if err := checkName(k, "="); err != nil {
			return err
		}
		fmt.Fprintf(buf, "%s%s = %s\n", indent, k, value)
	}

	for _, k := range subsections {
		if err := checkName(k, "[]"); err != nil {
			return err
		}
		open := strings.Repeat("[", depth+1)
		closing := strings.Repeat("]", depth+1)
		if depth == 0 && buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(buf, "%s%s%s%s\n", strings.Repeat("    ", depth), open, k, closing)
		if err := writeSection(buf, section[k].(map[string]any), depth+1); err != nil {
			return fmt.Errorf("section %q: %w", k, err)
		}
	}
	return nil
}

func checkName(name, forbidden string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name {
		return fmt.Errorf("name %q is empty or has surrounding whitespace", name)
	}
	if name[0] == '#' || name[0] == '[' || strings.ContainsAny(name, forbidden+"\n") {
		return fmt.Errorf("name %q cannot be represented", name)
	}
	return nil
}

// formatValue renders a scalar or a list. A one-element list keeps a
// trailing comma and an empty list is a lone comma.
func formatValue(v any) (string, error) {
	list, ok := v.([]any)
	if !ok {
		s, err := scalarString(v)
		if err != nil {
			return "", err
		}
		return quoteScalar(s)
	}
	switch len(list) {
	case 0:
		return ",", nil
	case 1:
		item, err := formatListItem(list[0])
		if err != nil {
			return "", err
		}
		return item + ",", nil
	}
	items := make([]string, 0, len(list))
	for _, el := range list {
		item, err := formatListItem(el)
		if err != nil {
			return "", err
		}
		items = append(items, item)
	}
	return strings.Join(items, ", "), nil
}

func scalarString(v any) (string, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		s = val
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
	if strings.ContainsAny(s, "\n\r") {
		return "", fmt.Errorf("multi-line values are not supported")
	}
	return s, nil
}

func quoteScalar(s string) (string, error) {
	if !needsQuotes(s) {
		return s, nil
	}
	if q, ok := singleQuote(s); ok {
		return q + s + q, nil
	}
	for _, triple := range []string{`'''`, `"""`} {
		if !strings.Contains(s, triple) && !strings.HasSuffix(s, triple[:1]) {
			return triple + s + triple, nil
		}
	}
	return "", fmt.Errorf("value %q contains both triple-quote sequences", s)
}

func formatListItem(v any) (string, error) {
	s, err := scalarString(v)
	if err != nil {
		return "", fmt.Errorf("list element: %w", err)
	}
	if s != "" && !needsQuotes(s) {
		return s, nil
	}
	if q, ok := singleQuote(s); ok {
		return q + s + q, nil
	}
	return "", fmt.Errorf("list element %q mixes both quote characters", s)
}

// singleQuote picks a quote character that does not occur in s.
func singleQuote(s string) (string, bool) {
	switch {
	case !strings.Contains(s, `"`):
		return `"`, true
	case !strings.Contains(s, `'`):
		return `'`, true
	default:
		return "", false
	}
}

func needsQuotes(s string) bool {
	if s == "" {
		return false
	}
	if strings.TrimSpace(s) != s || strings.ContainsAny(s, "#,") {
		return true
	}
	return s[0] == '"' || s[0] == '\''
}
