package configobj

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const fleet = `
# uPMU fleet
[P3001]
Location = "Lab, bench 2"
%alias = grizzly
    [[L1MAG]]
    uuid = 6b1d8a5e-1c62-4a52-9a5c-3f3a4c2b7e10
    Unit = V  # volts
        [[[Calibration]]]
        Gain = 1.02
    [[FREQ_L1_1S]]
    uuid = 'c0ffee00-0000-4000-8000-000000000002'

[P3002]
Location = Substation
`

func TestParse_NestedSections(t *testing.T) {
	tree, err := Parse([]byte(fleet))
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"P3001": map[string]any{
			"Location": "Lab, bench 2",
			"%alias":   "grizzly",
			"L1MAG": map[string]any{
				"uuid": "6b1d8a5e-1c62-4a52-9a5c-3f3a4c2b7e10",
				"Unit": "V",
				"Calibration": map[string]any{
					"Gain": "1.02",
				},
			},
			"FREQ_L1_1S": map[string]any{
				"uuid": "c0ffee00-0000-4000-8000-000000000002",
			},
		},
		"P3002": map[string]any{
			"Location": "Substation",
		},
	}, tree)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		line  int
	}{
		{"skipped level", "[A]\n[[[B]]]\n", 2},
		{"no key or section", "[A]\njust text\n", 2},
		{"unbalanced header", "[A]]\n", 1},
		{"duplicate key", "[A]\nk = 1\nk = 2\n", 3},
		{"duplicate section", "[A]\n[A]\n", 2},
		{"unterminated quote", "[A]\nk = \"open\n", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %v", err)
			require.Equal(t, tc.line, syntaxErr.Line)
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	tree, err := Parse([]byte("# nothing here\n\n"))
	require.NoError(t, err)
	require.Empty(t, tree)
}

func TestMarshal_RoundTrip(t *testing.T) {
	tree, err := Parse([]byte(fleet))
	require.NoError(t, err)

	out, err := Marshal(tree)
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, tree, again)

	// Stable output for equal input.
	out2, err := Marshal(again)
	require.NoError(t, err)
	require.Equal(t, string(out), string(out2))
}

func TestMarshal_Layout(t *testing.T) {
	out, err := Marshal(map[string]any{
		"?B": map[string]any{"%mustupdate": "true"},
		"A": map[string]any{
			"L1MAG":    map[string]any{"uuid": "u1"},
			"Location": "X",
			"Note":     "needs # quoting",
		},
	})
	require.NoError(t, err)
	require.Equal(t, `[?B]
%mustupdate = true

[A]
Location = X
Note = "needs # quoting"
    [[L1MAG]]
    uuid = u1
`, string(out))
}

func TestMarshal_Scalars(t *testing.T) {
	out, err := Marshal(map[string]any{"A": map[string]any{"n": 3, "ok": true, "f": 1.5, "empty": nil}})
	require.NoError(t, err)

	tree, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"A": map[string]any{"n": "3", "ok": "true", "f": "1.5", "empty": ""}}, tree)
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(map[string]any{"A": map[string]any{"list": []any{"a", []any{"b"}}}})
	require.Error(t, err)

	_, err = Marshal(map[string]any{"A": map[string]any{"k=v": "x"}})
	require.Error(t, err)

	_, err = Marshal(map[string]any{"A": map[string]any{"k": "line\nbreak"}})
	require.Error(t, err)

	_, err = Marshal(map[string]any{"A": map[string]any{"k": `a ''' b """ c, d`}})
	require.Error(t, err)
}

func TestParse_Lists(t *testing.T) {
	tree, err := Parse([]byte(`[A]
Tags = feeder, "bay 3", 'x, y'
One = solo,
None = ,
Quoted = "a, b"
Note = it's "x", y  # mixed quotes
Plain = no commas here
`))
	require.NoError(t, err)

	require.Equal(t, map[string]any{
		"Tags":   []any{"feeder", "bay 3", "x, y"},
		"One":    []any{"solo"},
		"None":   []any{},
		"Quoted": "a, b",
		"Note":   []any{`it's "x"`, "y"},
		"Plain":  "no commas here",
	}, tree["A"])
}

func TestParse_ListErrors(t *testing.T) {
	for _, input := range []string{
		"[A]\nk = a,,b\n",
		"[A]\nk = , a\n",
		"[A]\nk = \"a\" b, c\n",
		"[A]\nk = '''open\n",
	} {
		_, err := Parse([]byte(input))
		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), "input %q: got %v", input, err)
		require.Equal(t, 2, syntaxErr.Line)
	}
}

func TestParse_TripleQuotes(t *testing.T) {
	tree, err := Parse([]byte(`[A]
Note = '''it's "x", y'''  # both quotes
Other = """it's #1"""
`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"Note":  `it's "x", y`,
		"Other": "it's #1",
	}, tree["A"])
}

func TestMarshal_RoundTripsEveryParsedValue(t *testing.T) {
	inputs := []string{
		"[A]\nNote = it's \"x\", y\n",
		"[A]\nNote = '''it's \"x\", y'''\n",
		"[A]\nNote = '''she said \"'hi'\" # ok'''\n",
		"[A]\nTags = a, \"b c\", 'd, \"e\"'\n",
		"[A]\nOne = solo,\nNone = ,\nEmpty = \n",
		"[A]\nLead = \"'quoted'\"\nComma = ','\n",
	}
	for _, input := range inputs {
		tree, err := Parse([]byte(input))
		require.NoError(t, err, input)

		out, err := Marshal(tree)
		require.NoError(t, err, input)

		again, err := Parse(out)
		require.NoError(t, err, string(out))
		require.Equal(t, tree, again, "marshaled as:\n%s", out)
	}
}

func TestMarshal_MixedQuotesUseTripleQuotes(t *testing.T) {
	out, err := Marshal(map[string]any{"A": map[string]any{
		"Note":  `it's "x", y`,
		"Tail":  `ends with 'q' # "x"'`,
		"Lists": []any{"a", "b c", `it's`},
	}})
	require.NoError(t, err)
	require.Equal(t, `[A]
Lists = a, b c, it's
Note = '''it's "x", y'''
Tail = """ends with 'q' # "x"'"""
`, string(out))
}
