package dispatch

import (
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerListCommands(tbl map[string]*commandSpec) {
	reg(tbl, "LPUSH", 3, -1, true, false, cmdLPush)
	reg(tbl, "RPUSH", 3, -1, true, false, cmdRPush)
	reg(tbl, "LPUSHX", 3, -1, true, false, cmdLPushX)
	reg(tbl, "RPUSHX", 3, -1, true, false, cmdRPushX)
	reg(tbl, "LPOP", 2, 3, true, false, cmdLPop)
	reg(tbl, "RPOP", 2, 3, true, false, cmdRPop)
	reg(tbl, "LLEN", 2, 2, false, false, cmdLLen)
	reg(tbl, "LRANGE", 4, 4, false, false, cmdLRange)
	reg(tbl, "LINDEX", 3, 3, false, false, cmdLIndex)
	reg(tbl, "LSET", 4, 4, true, false, cmdLSet)
	reg(tbl, "LTRIM", 4, 4, true, false, cmdLTrim)
	reg(tbl, "LREM", 4, 4, true, false, cmdLRem)
	reg(tbl, "LINSERT", 5, 5, true, false, cmdLInsert)
	reg(tbl, "RPOPLPUSH", 3, 3, true, false, cmdRPopLPush)
	reg(tbl, "LMOVE", 5, 5, true, false, cmdLMove)
}

// listPop pops one element from key, shared by LPOP/RPOP and by
// BLPOP/BRPOP's per-attempt callback.
func listPop(db *store.Database, key string, left bool) ([]byte, bool) {
	l, existed, bad := getList(db, key)
	if bad || !existed {
		return nil, false
	}
	var v []byte
	var ok bool
	if left {
		v, ok = l.LeftPop()
	} else {
		v, ok = l.RightPop()
	}
	if !ok {
		return nil, false
	}
	db.Touch(key)
	if l.Length() == 0 {
		db.Delete(key)
	}
	return v, true
}

func cmdLPush(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPush(d, conn, args, true)
}

func cmdRPush(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPush(d, conn, args, false)
}

func listPush(d *Dispatcher, conn *ConnState, args []string, left bool) resp.Value {
	db := d.db(conn)
	key := args[0]
	_, _, bad := getList(db, key)
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(key, func() store.Value { return store.NewList() })
	l := e.Value.(*store.List)
	var n int
	for _, v := range args[1:] {
		if left {
			n = l.LeftPush([]byte(v))
		} else {
			n = l.RightPush([]byte(v))
		}
	}
	db.Touch(key)
	db.Notify(key)
	return intReply(int64(n))
}

func cmdLPushX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPushX(d, conn, args, true)
}

func cmdRPushX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPushX(d, conn, args, false)
}

func listPushX(d *Dispatcher, conn *ConnState, args []string, left bool) resp.Value {
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	var n int
	for _, v := range args[1:] {
		if left {
			n = l.LeftPush([]byte(v))
		} else {
			n = l.RightPush([]byte(v))
		}
	}
	db.Touch(args[0])
	db.Notify(args[0])
	return intReply(int64(n))
}

func cmdLPop(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPop2(d, conn, args, true)
}

func cmdRPop(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return listPop2(d, conn, args, false)
}

func listPop2(d *Dispatcher, conn *ConnState, args []string, left bool) resp.Value {
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
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
			return resp.NewNullArray()
		}
		return resp.NewNullBulk()
	}
	var out [][]byte
	for i := 0; i < count; i++ {
		var v []byte
		var ok bool
		if left {
			v, ok = l.LeftPop()
		} else {
			v, ok = l.RightPop()
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	if len(out) > 0 {
		db.Touch(args[0])
	}
	if l.Length() == 0 {
		db.Delete(args[0])
	}
	if withCount {
		if len(out) == 0 {
			return resp.NewNullArray()
		}
		return resp.NewStringArray(out)
	}
	if len(out) == 0 {
		return resp.NewNullBulk()
	}
	return bulkReply(out[0])
}

func cmdLLen(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	l, existed, bad := getList(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(l.Length()))
}

func cmdLRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	start, ok1 := parseInt(args[1])
	end, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInt()
	}
	l, existed, bad := getList(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	return resp.NewStringArray(l.Range(int(start), int(end)))
}

func cmdLIndex(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	idx, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	l, existed, bad := getList(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	v, ok := l.Index(int(idx))
	if !ok {
		return resp.NewNullBulk()
	}
	return bulkReply(v)
}

func cmdLSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	idx, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return errGeneric("no such key")
	}
	if !l.Set(int(idx), []byte(args[2])) {
		return errGeneric("index out of range")
	}
	db.Touch(args[0])
	return okReply()
}

func cmdLTrim(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	start, ok1 := parseInt(args[1])
	end, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInt()
	}
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return okReply()
	}
	l.Trim(int(start), int(end))
	db.Touch(args[0])
	if l.Length() == 0 {
		db.Delete(args[0])
	}
	return okReply()
}

func cmdLRem(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	count, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	removed := l.RemoveMatching([]byte(args[2]), int(count))
	if removed > 0 {
		db.Touch(args[0])
	}
	if l.Length() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(removed))
}

func cmdLInsert(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	where := strings.ToUpper(args[1])
	if where != "BEFORE" && where != "AFTER" {
		return errSyntax()
	}
	db := d.db(conn)
	l, existed, bad := getList(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	var n int
	if where == "BEFORE" {
		n = l.InsertBefore([]byte(args[2]), []byte(args[3]))
	} else {
		n = l.InsertAfter([]byte(args[2]), []byte(args[3]))
	}
	if n >= 0 {
		db.Touch(args[0])
	}
	return intReply(int64(n))
}

func cmdRPopLPush(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return moveBetweenLists(d, conn, args[0], args[1], false, true)
}

func cmdLMove(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	fromLeft := strings.ToUpper(args[2]) == "LEFT"
	toLeft := strings.ToUpper(args[3]) == "LEFT"
	if (args[2] != "LEFT" && args[2] != "RIGHT") || (args[3] != "LEFT" && args[3] != "RIGHT") {
		return errSyntax()
	}
	return moveBetweenLists(d, conn, args[0], args[1], fromLeft, toLeft)
}

func moveBetweenLists(d *Dispatcher, conn *ConnState, src, dst string, fromLeft, toLeft bool) resp.Value {
	db := d.db(conn)
	srcList, existed, bad := getList(db, src)
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	_, _, dstBad := getList(db, dst)
	if dstBad {
		return errWrongType()
	}
	var v []byte
	var ok bool
	if fromLeft {
		v, ok = srcList.LeftPop()
	} else {
		v, ok = srcList.RightPop()
	}
	if !ok {
		return resp.NewNullBulk()
	}
	e, _ := db.GetOrCreate(dst, func() store.Value { return store.NewList() })
	dstList := e.Value.(*store.List)
	if toLeft {
		dstList.LeftPush(v)
	} else {
		dstList.RightPush(v)
	}
	db.Touch(src)
	db.Touch(dst)
	db.Notify(dst)
	if srcList.Length() == 0 {
		db.Delete(src)
	}
	return bulkReply(v)
}
