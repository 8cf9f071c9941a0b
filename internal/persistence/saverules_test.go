package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSaveRules(t *testing.T) {
	rules := ParseSaveRules("900 1 300 10 60 10000")
	require.Equal(t, []SaveRule{
		{Seconds: 900 * time.Second, Changes: 1},
		{Seconds: 300 * time.Second, Changes: 10},
		{Seconds: 60 * time.Second, Changes: 10000},
	}, rules)
}

func TestParseSaveRulesEmpty(t *testing.T) {
	require.Nil(t, ParseSaveRules(""))
}

func TestParseSaveRulesOddFieldCount(t *testing.T) {
	require.Nil(t, ParseSaveRules("900 1 300"))
}

func TestParseSaveRulesSkipsMalformedPairs(t *testing.T) {
	rules := ParseSaveRules("900 1 abc 10")
	require.Equal(t, []SaveRule{{Seconds: 900 * time.Second, Changes: 1}}, rules)
}
