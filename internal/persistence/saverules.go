package persistence

import (
	"strconv"
	"strings"
	"time"
)

// SaveRule is one "after N seconds, if M keys changed" autosave
// threshold, matching Redis's "save 900 1 300 10" config line.
type SaveRule struct {
	Seconds time.Duration
	Changes int64
}

// ParseSaveRules parses a space-separated "seconds changes [seconds
// changes ...]" string into its constituent rules. A malformed or
// empty string yields no rules, which disables autosave.
func ParseSaveRules(s string) []SaveRule {
	fields := strings.Fields(s)
	if len(fields)%2 != 0 {
		return nil
	}
	rules := make([]SaveRule, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		secs, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			continue
		}
		changes, err := strconv.ParseInt(fields[i+1], 10, 64)
		if err != nil {
			continue
		}
		rules = append(rules, SaveRule{Seconds: time.Duration(secs) * time.Second, Changes: changes})
	}
	return rules
}
