package store

import lru "github.com/hashicorp/golang-lru/v2"

// globCache memoizes compiled patterns for KEYS/SCAN/PSUBSCRIBE, which
// are commonly re-issued with the same pattern from a hot polling loop.
var globCache *lru.Cache[string, []globTok]

func init() {
	c, err := lru.New[string, []globTok](256)
	if err != nil {
		panic(err)
	}
	globCache = c
}

type globTokKind int

const (
	globLit globTokKind = iota
	globStar
	globQuestion
	globClass
)

type globTok struct {
	kind    globTokKind
	lit     byte
	negate  bool
	ranges  [][2]byte
	literal []byte
}

// compileGlob parses a glob pattern once, matching redis-style
// wildcardMatch into a reusable token list that also understands
// [...] / [^...] character classes for KEYS-style pattern matching.
func compileGlob(pattern string) []globTok {
	if toks, ok := globCache.Get(pattern); ok {
		return toks
	}
	var toks []globTok
	p := []byte(pattern)
	i := 0
	for i < len(p) {
		switch p[i] {
		case '*':
			toks = append(toks, globTok{kind: globStar})
			i++
		case '?':
			toks = append(toks, globTok{kind: globQuestion})
			i++
		case '[':
			j := i + 1
			negate := false
			if j < len(p) && (p[j] == '^' || p[j] == '!') {
				negate = true
				j++
			}
			var ranges [][2]byte
			for j < len(p) && p[j] != ']' {
				if j+2 < len(p) && p[j+1] == '-' && p[j+2] != ']' {
					ranges = append(ranges, [2]byte{p[j], p[j+2]})
					j += 3
				} else {
					ranges = append(ranges, [2]byte{p[j], p[j]})
					j++
				}
			}
			toks = append(toks, globTok{kind: globClass, negate: negate, ranges: ranges})
			if j < len(p) {
				j++
			}
			i = j
		case '\\':
			if i+1 < len(p) {
				toks = append(toks, globTok{kind: globLit, lit: p[i+1]})
				i += 2
			} else {
				toks = append(toks, globTok{kind: globLit, lit: '\\'})
				i++
			}
		default:
			toks = append(toks, globTok{kind: globLit, lit: p[i]})
			i++
		}
	}
	globCache.Add(pattern, toks)
	return toks
}

// Match reports whether s matches the glob pattern.
func Match(pattern, s string) bool {
	toks := compileGlob(pattern)
	return matchToks(toks, []byte(s))
}

func matchToks(toks []globTok, s []byte) bool {
	if len(toks) == 0 {
		return len(s) == 0
	}
	t := toks[0]
	switch t.kind {
	case globStar:
		if matchToks(toks[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if matchToks(toks[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case globQuestion:
		if len(s) == 0 {
			return false
		}
		return matchToks(toks[1:], s[1:])
	case globClass:
		if len(s) == 0 {
			return false
		}
		in := false
		for _, r := range t.ranges {
			if s[0] >= r[0] && s[0] <= r[1] {
				in = true
				break
			}
		}
		if t.negate {
			in = !in
		}
		if !in {
			return false
		}
		return matchToks(toks[1:], s[1:])
	default: // globLit
		if len(s) == 0 || s[0] != t.lit {
			return false
		}
		return matchToks(toks[1:], s[1:])
	}
}
