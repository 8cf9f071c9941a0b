package dispatch

import (
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerSetCommands(tbl map[string]*commandSpec) {
	reg(tbl, "SADD", 3, -1, true, false, cmdSAdd)
	reg(tbl, "SREM", 3, -1, true, false, cmdSRem)
	reg(tbl, "SMEMBERS", 2, 2, false, false, cmdSMembers)
	reg(tbl, "SCARD", 2, 2, false, false, cmdSCard)
	reg(tbl, "SISMEMBER", 3, 3, false, false, cmdSIsMember)
	reg(tbl, "SPOP", 2, 3, true, false, cmdSPop)
	reg(tbl, "SMOVE", 4, 4, true, false, cmdSMove)
	reg(tbl, "SUNION", 2, -1, false, false, cmdSUnion)
	reg(tbl, "SINTER", 2, -1, false, false, cmdSInter)
	reg(tbl, "SDIFF", 2, -1, false, false, cmdSDiff)
	reg(tbl, "SUNIONSTORE", 3, -1, true, false, cmdSUnionStore)
	reg(tbl, "SINTERSTORE", 3, -1, true, false, cmdSInterStore)
	reg(tbl, "SDIFFSTORE", 3, -1, true, false, cmdSDiffStore)
}

func cmdSAdd(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	_, _, bad := getSet(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewSet() })
	s := e.Value.(*store.Set)
	added := 0
	for _, m := range args[1:] {
		if s.Add(m) {
			added++
		}
	}
	if added > 0 {
		db.Touch(args[0])
	}
	return intReply(int64(added))
}

func cmdSRem(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	s, existed, bad := getSet(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	removed := 0
	for _, m := range args[1:] {
		if s.Remove(m) {
			removed++
		}
	}
	if removed > 0 {
		db.Touch(args[0])
	}
	if s.Card() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(removed))
}

func cmdSMembers(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	s, existed, bad := getSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	return membersReply(s.Members())
}

func membersReply(members []string) resp.Value {
	elems := make([]resp.Value, len(members))
	for i, m := range members {
		elems[i] = bulkReply([]byte(m))
	}
	return resp.NewArray(elems)
}

func cmdSCard(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	s, existed, bad := getSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(s.Card()))
}

func cmdSIsMember(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	s, existed, bad := getSet(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return boolInt(s.IsMember(args[1]))
}

func cmdSPop(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	s, existed, bad := getSet(db, args[0])
	if bad {
		return errWrongType()
	}
	count := 1
	withCount := false
	if len(args) == 2 {
		n, ok := parseInt(args[1])
		if !ok || n < 0 {
			return errGeneric("value is out of range, must be positive")
		}
		count = int(n)
		withCount = true
	}
	if !existed {
		if withCount {
			return resp.NewArray(nil)
		}
		return resp.NewNullBulk()
	}
	var out []string
	for i := 0; i < count; i++ {
		m, ok := s.Pop()
		if !ok {
			break
		}
		out = append(out, m)
	}
	if len(out) > 0 {
		db.Touch(args[0])
	}
	if s.Card() == 0 {
		db.Delete(args[0])
	}
	if withCount {
		return membersReply(out)
	}
	if len(out) == 0 {
		return resp.NewNullBulk()
	}
	return bulkReply([]byte(out[0]))
}

func cmdSMove(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	src, existed, bad := getSet(db, args[0])
	if bad {
		return errWrongType()
	}
	_, _, dstBad := getSet(db, args[1])
	if dstBad {
		return errWrongType()
	}
	if !existed || !src.IsMember(args[2]) {
		return intReply(0)
	}
	src.Remove(args[2])
	e, _ := db.GetOrCreate(args[1], func() store.Value { return store.NewSet() })
	dst := e.Value.(*store.Set)
	dst.Add(args[2])
	db.Touch(args[0])
	db.Touch(args[1])
	if src.Card() == 0 {
		db.Delete(args[0])
	}
	return intReply(1)
}

func setMapsFor(db *store.Database, keys []string) ([]map[string]struct{}, resp.Value) {
	maps := make([]map[string]struct{}, 0, len(keys))
	for _, key := range keys {
		s, existed, bad := getSet(db, key)
		if bad {
			return nil, errWrongType()
		}
		if !existed {
			maps = append(maps, map[string]struct{}{})
			continue
		}
		maps = append(maps, s.ToSetMap())
	}
	return maps, resp.Value{}
}

func cmdSUnion(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	maps, errv := setMapsFor(d.db(conn), args)
	if errv.Type == resp.Error {
		return errv
	}
	return setReplyFromMap(store.SetUnion(maps))
}

func cmdSInter(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	maps, errv := setMapsFor(d.db(conn), args)
	if errv.Type == resp.Error {
		return errv
	}
	return setReplyFromMap(store.SetInter(maps))
}

func cmdSDiff(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	maps, errv := setMapsFor(d.db(conn), args)
	if errv.Type == resp.Error {
		return errv
	}
	return setReplyFromMap(store.SetDiff(maps))
}

func setReplyFromMap(m map[string]struct{}) resp.Value {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return membersReply(out)
}

func cmdSUnionStore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return setStoreOp(d, conn, args, store.SetUnion)
}

func cmdSInterStore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return setStoreOp(d, conn, args, store.SetInter)
}

func cmdSDiffStore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return setStoreOp(d, conn, args, store.SetDiff)
}

func setStoreOp(d *Dispatcher, conn *ConnState, args []string, op func([]map[string]struct{}) map[string]struct{}) resp.Value {
	db := d.db(conn)
	dest := args[0]
	maps, errv := setMapsFor(db, args[1:])
	if errv.Type == resp.Error {
		return errv
	}
	result := op(maps)
	if len(result) == 0 {
		db.Delete(dest)
		return intReply(0)
	}
	newSet := store.NewSet()
	for m := range result {
		newSet.Add(m)
	}
	db.Set(dest, newSet, 0)
	return intReply(int64(len(result)))
}
