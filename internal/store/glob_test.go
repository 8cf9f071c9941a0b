package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchWildcards(t *testing.T) {
	cases := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"user:*", "user:123", true},
		{"user:*", "order:123", false},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},
		{"h[ae]llo", "hello", true},
		{"h[ae]llo", "hillo", false},
		{"h[^ae]llo", "hillo", true},
		{"h[^ae]llo", "hello", false},
		{"h[a-c]t", "hbt", true},
		{"h[a-c]t", "hdt", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Match(c.pattern, c.s), "pattern=%q s=%q", c.pattern, c.s)
	}
}

func TestMatchEscapedLiteral(t *testing.T) {
	require.True(t, Match(`a\*b`, "a*b"))
	require.False(t, Match(`a\*b`, "axb"))
}
