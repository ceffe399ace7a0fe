package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBasics(t *testing.T) {
	s := New("a", "b")
	s.Add("c")
	s.Delete("a")

	require.False(t, s.Has("a"))
	require.True(t, s.Has("b"))
	require.Equal(t, []string{"b", "c"}, Sorted(s))

	var empty Set[string]
	require.False(t, empty.Has("x"))
}

func TestDifferenceAndKeysOf(t *testing.T) {
	prev := KeysOf(map[string]int{"A": 1, "B": 2, "C": 3})
	curr := New("A", "C", "D")

	require.Equal(t, []string{"B"}, Sorted(prev.Difference(curr)))
	require.Equal(t, []string{"D"}, Sorted(curr.Difference(prev)))
}
