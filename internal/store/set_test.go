package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAddRemoveMember(t *testing.T) {
	s := NewSet()
	require.True(t, s.Add("a"))
	require.False(t, s.Add("a"))
	require.True(t, s.IsMember("a"))
	require.Equal(t, 1, s.Card())

	require.True(t, s.Remove("a"))
	require.False(t, s.Remove("a"))
	require.False(t, s.IsMember("a"))
}

func TestSetPop(t *testing.T) {
	s := NewSet()
	_, ok := s.Pop()
	require.False(t, ok)

	s.Add("only")
	m, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, "only", m)
	require.Equal(t, 0, s.Card())
}

func TestSetUnionInterDiff(t *testing.T) {
	a := NewSet()
	a.Add("1")
	a.Add("2")
	a.Add("3")

	b := NewSet()
	b.Add("2")
	b.Add("3")
	b.Add("4")

	union := SetUnion([]map[string]struct{}{a.ToSetMap(), b.ToSetMap()})
	require.ElementsMatch(t, []string{"1", "2", "3", "4"}, keysOf(union))

	inter := SetInter([]map[string]struct{}{a.ToSetMap(), b.ToSetMap()})
	require.ElementsMatch(t, []string{"2", "3"}, keysOf(inter))

	diff := SetDiff([]map[string]struct{}{a.ToSetMap(), b.ToSetMap()})
	require.ElementsMatch(t, []string{"1"}, keysOf(diff))
}

func keysOf(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
