package dispatch

import (
	"strconv"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func (d *Dispatcher) db(conn *ConnState) *store.Database {
	return d.Keyspace.DB(conn.DBIndex)
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// formatFloat renders a float the way INCRBYFLOAT's reply does: the
// shortest representation that round-trips, trimming trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normByteRange maps a possibly-negative, possibly-overlong [start,end]
// byte range onto [0,length-1], mirroring GETRANGE/BITCOUNT semantics.
func normByteRange(length, start, end int) (int, int) {
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end >= length {
		end = length - 1
	}
	return start, end
}

func intReply(n int64) resp.Value    { return resp.NewInteger(n) }
func bulkReply(b []byte) resp.Value  { return resp.NewBulkString(b) }
func boolInt(b bool) resp.Value {
	if b {
		return resp.NewInteger(1)
	}
	return resp.NewInteger(0)
}

// getString fetches key as a StringValue. existed reports whether the
// key was present at all; bad reports a WRONGTYPE mismatch.
func getString(db *store.Database, key string) (sv *store.StringValue, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	sv, ok = e.Value.(*store.StringValue)
	if !ok {
		return nil, true, true
	}
	return sv, true, false
}

func getList(db *store.Database, key string) (l *store.List, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	l, ok = e.Value.(*store.List)
	if !ok {
		return nil, true, true
	}
	return l, true, false
}

func getHash(db *store.Database, key string) (h *store.Hash, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	h, ok = e.Value.(*store.Hash)
	if !ok {
		return nil, true, true
	}
	return h, true, false
}

func getSet(db *store.Database, key string) (s *store.Set, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	s, ok = e.Value.(*store.Set)
	if !ok {
		return nil, true, true
	}
	return s, true, false
}

func getZSet(db *store.Database, key string) (z *store.ZSet, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	z, ok = e.Value.(*store.ZSet)
	if !ok {
		return nil, true, true
	}
	return z, true, false
}

func getStream(db *store.Database, key string) (s *store.Stream, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	s, ok = e.Value.(*store.Stream)
	if !ok {
		return nil, true, true
	}
	return s, true, false
}

func getHLL(db *store.Database, key string) (h *store.HyperLogLog, existed, bad bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false, false
	}
	h, ok = e.Value.(*store.HyperLogLog)
	if !ok {
		return nil, true, true
	}
	return h, true, false
}
