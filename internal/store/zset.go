package store

import (
	"sync"

	"github.com/google/btree"
)

// zsetItem is a (score, member) pair ordered by the sorted set's total
// order: score ascending, then member lexicographic; +0 == -0 falls
// out of plain float64 comparison.
type zsetItem struct {
	score  float64
	member string
}

func zsetLess(a, b zsetItem) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// ZSet maps member bytes to a finite float64 score with an ordered
// index backed by google/btree's generic BTreeG. Insert, delete and
// score-range seeks are O(log n); Rank and RangeByRank walk the tree
// in order and are O(n).
type ZSet struct {
	mu     sync.RWMutex
	scores map[string]float64
	tree   *btree.BTreeG[zsetItem]
}

func (*ZSet) Type() ValueType { return TypeZSet }

func NewZSet() *ZSet {
	return &ZSet{
		scores: make(map[string]float64),
		tree:   btree.NewG(32, zsetLess),
	}
}

// Add sets member's score, returning true if member is new.
func (z *ZSet) Add(member string, score float64) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	old, exists := z.scores[member]
	if exists {
		z.tree.Delete(zsetItem{score: old, member: member})
	}
	z.scores[member] = score
	z.tree.ReplaceOrInsert(zsetItem{score: score, member: member})
	return !exists
}

// IncrBy adds delta to member's score (default 0) and returns the new score.
func (z *ZSet) IncrBy(member string, delta float64) float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	old, exists := z.scores[member]
	if exists {
		z.tree.Delete(zsetItem{score: old, member: member})
	}
	newScore := old + delta
	z.scores[member] = newScore
	z.tree.ReplaceOrInsert(zsetItem{score: newScore, member: member})
	return newScore
}

func (z *ZSet) Score(member string) (float64, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	s, ok := z.scores[member]
	return s, ok
}

func (z *ZSet) Remove(member string) bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	score, exists := z.scores[member]
	if !exists {
		return false
	}
	delete(z.scores, member)
	z.tree.Delete(zsetItem{score: score, member: member})
	return true
}

func (z *ZSet) Card() int {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return len(z.scores)
}

// RangeByRank returns the inclusive [start,end] slice in score order,
// supporting negative indices the way LRANGE does.
func (z *ZSet) RangeByRank(start, end int, reverse bool) []MemberScore {
	z.mu.RLock()
	defer z.mu.RUnlock()
	n := z.tree.Len()
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return nil
	}
	ordered := make([]MemberScore, 0, n)
	z.tree.Ascend(func(it zsetItem) bool {
		ordered = append(ordered, MemberScore{Member: it.member, Score: it.score})
		return true
	})
	if reverse {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}
	return ordered[start : end+1]
}

// RangeByScore returns members with min<=score<=max (or exclusive per
// the flags) in ascending order.
func (z *ZSet) RangeByScore(min, max float64, minExcl, maxExcl bool) []MemberScore {
	z.mu.RLock()
	defer z.mu.RUnlock()
	var out []MemberScore
	z.tree.AscendRange(zsetItem{score: min, member: ""}, zsetItem{score: max, member: "\xff\xff\xff\xff"}, func(it zsetItem) bool {
		if it.score > max {
			return false
		}
		if minExcl && it.score == min {
			return true
		}
		if maxExcl && it.score == max {
			return true
		}
		out = append(out, MemberScore{Member: it.member, Score: it.score})
		return true
	})
	return out
}

// Rank returns member's 0-based rank in ascending score order.
func (z *ZSet) Rank(member string, reverse bool) (int, bool) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	score, ok := z.scores[member]
	if !ok {
		return 0, false
	}
	rank := 0
	found := false
	z.tree.Ascend(func(it zsetItem) bool {
		if it.score == score && it.member == member {
			found = true
			return false
		}
		rank++
		return true
	})
	if !found {
		return 0, false
	}
	if reverse {
		return z.tree.Len() - 1 - rank, true
	}
	return rank, true
}

// MemberScore pairs a member with its score for range query results.
type MemberScore struct {
	Member string
	Score  float64
}
