package store

import (
	"fmt"
	"sort"
	"sync"
)

// StreamID is a (milliseconds, sequence) pair; stream ids are strictly
// increasing.
type StreamID struct {
	Ms  int64
	Seq int64
}

func (id StreamID) String() string { return fmt.Sprintf("%d-%d", id.Ms, id.Seq) }

func (a StreamID) Less(b StreamID) bool {
	if a.Ms != b.Ms {
		return a.Ms < b.Ms
	}
	return a.Seq < b.Seq
}

// StreamEntry is one append-only record: an id and an ordered
// field-value list.
type StreamEntry struct {
	ID     StreamID
	Fields [][2][]byte
}

// Stream is an append-only log of ID-ordered entries.
type Stream struct {
	mu       sync.RWMutex
	entries  []StreamEntry
	lastID   StreamID
	lastAny  bool
	maxDelID StreamID
}

func (*Stream) Type() ValueType { return TypeStream }

func NewStream() *Stream { return &Stream{} }

// NextID computes the id for an XADD with explicit "*" auto-generation:
// (max(nowMs, lastMs), lastSeq+1 if same ms else 0).
func (s *Stream) NextID(nowMs int64) StreamID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := nowMs
	if s.lastAny && s.lastID.Ms > ms {
		ms = s.lastID.Ms
	}
	seq := int64(0)
	if s.lastAny && ms == s.lastID.Ms {
		seq = s.lastID.Seq + 1
	}
	return StreamID{Ms: ms, Seq: seq}
}

// Append validates id > last id (or "*ms-*" partial form resolved by the
// caller) and appends the entry, returning an error if ids are not
// strictly increasing.
func (s *Stream) Append(id StreamID, fields [][2][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAny && !s.lastID.Less(id) {
		return fmt.Errorf("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	}
	s.entries = append(s.entries, StreamEntry{ID: id, Fields: fields})
	s.lastID = id
	s.lastAny = true
	return nil
}

func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Stream) LastID() (StreamID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, s.lastAny
}

// Range returns entries with start<=id<=end in ascending order.
func (s *Stream) Range(start, end StreamID, count int) []StreamEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo := sort.Search(len(s.entries), func(i int) bool { return !s.entries[i].ID.Less(start) })
	var out []StreamEntry
	for i := lo; i < len(s.entries); i++ {
		if end.Less(s.entries[i].ID) {
			break
		}
		out = append(out, s.entries[i])
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

// Delete removes entries with the given ids, returning the count removed.
func (s *Stream) Delete(ids []StreamID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[StreamID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if _, ok := want[e.ID]; ok {
			removed++
			continue
		}
		out = append(out, e)
	}
	s.entries = out
	return removed
}
