package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZSetAddScoreIncrBy(t *testing.T) {
	z := NewZSet()
	require.True(t, z.Add("a", 1.5))
	require.False(t, z.Add("a", 2.0), "re-adding an existing member reports false")

	score, ok := z.Score("a")
	require.True(t, ok)
	require.Equal(t, 2.0, score)

	newScore := z.IncrBy("a", 3.0)
	require.Equal(t, 5.0, newScore)

	newScore = z.IncrBy("b", 1.0)
	require.Equal(t, 1.0, newScore)
}

func TestZSetRemoveCard(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)
	z.Add("b", 2)
	require.Equal(t, 2, z.Card())

	require.True(t, z.Remove("a"))
	require.False(t, z.Remove("a"))
	require.Equal(t, 1, z.Card())
}

func TestZSetRangeByRank(t *testing.T) {
	z := NewZSet()
	z.Add("c", 3)
	z.Add("a", 1)
	z.Add("b", 2)

	asc := z.RangeByRank(0, -1, false)
	require.Equal(t, []MemberScore{{"a", 1}, {"b", 2}, {"c", 3}}, asc)

	desc := z.RangeByRank(0, -1, true)
	require.Equal(t, []MemberScore{{"c", 3}, {"b", 2}, {"a", 1}}, desc)

	top1 := z.RangeByRank(0, 0, true)
	require.Equal(t, []MemberScore{{"c", 3}}, top1)
}

func TestZSetRangeByScore(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)

	in := z.RangeByScore(1, 2, false, false)
	require.Equal(t, []MemberScore{{"a", 1}, {"b", 2}}, in)

	excl := z.RangeByScore(1, 2, true, false)
	require.Equal(t, []MemberScore{{"b", 2}}, excl)
}

func TestZSetRank(t *testing.T) {
	z := NewZSet()
	z.Add("a", 1)
	z.Add("b", 2)
	z.Add("c", 3)

	rank, ok := z.Rank("b", false)
	require.True(t, ok)
	require.Equal(t, 1, rank)

	rank, ok = z.Rank("b", true)
	require.True(t, ok)
	require.Equal(t, 1, rank)

	_, ok = z.Rank("missing", false)
	require.False(t, ok)
}
