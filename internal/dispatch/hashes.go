package dispatch

import (
	"strconv"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerHashCommands(tbl map[string]*commandSpec) {
	reg(tbl, "HSET", 4, -1, true, false, cmdHSet)
	reg(tbl, "HMSET", 4, -1, true, false, cmdHMSet)
	reg(tbl, "HSETNX", 4, 4, true, false, cmdHSetNX)
	reg(tbl, "HGET", 3, 3, false, false, cmdHGet)
	reg(tbl, "HMGET", 3, -1, false, false, cmdHMGet)
	reg(tbl, "HGETALL", 2, 2, false, false, cmdHGetAll)
	reg(tbl, "HDEL", 3, -1, true, false, cmdHDel)
	reg(tbl, "HLEN", 2, 2, false, false, cmdHLen)
	reg(tbl, "HEXISTS", 3, 3, false, false, cmdHExists)
	reg(tbl, "HKEYS", 2, 2, false, false, cmdHKeys)
	reg(tbl, "HVALS", 2, 2, false, false, cmdHVals)
	reg(tbl, "HINCRBY", 4, 4, true, false, cmdHIncrBy)
	reg(tbl, "HINCRBYFLOAT", 4, 4, true, false, cmdHIncrByFloat)
	reg(tbl, "HSTRLEN", 3, 3, false, false, cmdHStrlen)
}

func cmdHSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args)%2 != 1 {
		return errWrongArgs("hset")
	}
	db := d.db(conn)
	_, _, bad := getHash(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewHash() })
	h := e.Value.(*store.Hash)
	added := 0
	for i := 1; i+1 < len(args); i += 2 {
		if h.Set(args[i], []byte(args[i+1])) {
			added++
		}
	}
	db.Touch(args[0])
	return intReply(int64(added))
}

func cmdHMSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	reply := cmdHSet(d, conn, args)
	if reply.Type == resp.Error {
		return reply
	}
	return okReply()
}

func cmdHSetNX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	_, _, bad := getHash(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewHash() })
	h := e.Value.(*store.Hash)
	if !h.SetNX(args[1], []byte(args[2])) {
		return intReply(0)
	}
	db.Touch(args[0])
	return intReply(1)
}

func cmdHGet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	v, ok := h.Get(args[1])
	if !ok {
		return resp.NewNullBulk()
	}
	return bulkReply(v)
}

func cmdHMGet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	elems := make([]resp.Value, len(args)-1)
	for i, field := range args[1:] {
		if !existed {
			elems[i] = resp.NewNullBulk()
			continue
		}
		v, ok := h.Get(field)
		if !ok {
			elems[i] = resp.NewNullBulk()
			continue
		}
		elems[i] = bulkReply(v)
	}
	return resp.NewArray(elems)
}

func cmdHGetAll(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	all := h.GetAll()
	elems := make([]resp.Value, 0, len(all)*2)
	for k, v := range all {
		elems = append(elems, bulkReply([]byte(k)), bulkReply(v))
	}
	return resp.NewArray(elems)
}

func cmdHDel(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	h, existed, bad := getHash(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	removed := 0
	for _, field := range args[1:] {
		if h.Del(field) {
			removed++
		}
	}
	if removed > 0 {
		db.Touch(args[0])
	}
	if h.Len() == 0 {
		db.Delete(args[0])
	}
	return intReply(int64(removed))
}

func cmdHLen(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(h.Len()))
}

func cmdHExists(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return boolInt(h.Exists(args[1]))
}

func cmdHKeys(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	keys := h.Keys()
	elems := make([]resp.Value, len(keys))
	for i, k := range keys {
		elems[i] = bulkReply([]byte(k))
	}
	return resp.NewArray(elems)
}

func cmdHVals(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	all := h.GetAll()
	elems := make([]resp.Value, 0, len(all))
	for _, v := range all {
		elems = append(elems, bulkReply(v))
	}
	return resp.NewArray(elems)
}

func cmdHIncrBy(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	delta, ok := parseInt(args[2])
	if !ok {
		return errNotInt()
	}
	db := d.db(conn)
	_, _, bad := getHash(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewHash() })
	h := e.Value.(*store.Hash)
	var cur int64
	if v, ok := h.Get(args[1]); ok {
		n, ok := parseInt(string(v))
		if !ok {
			return errGeneric("hash value is not an integer")
		}
		cur = n
	}
	next := cur + delta
	h.Set(args[1], []byte(strconv.FormatInt(next, 10)))
	db.Touch(args[0])
	return intReply(next)
}

func cmdHIncrByFloat(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	delta, ok := parseFloat(args[2])
	if !ok {
		return errNotFloat()
	}
	db := d.db(conn)
	_, _, bad := getHash(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewHash() })
	h := e.Value.(*store.Hash)
	var cur float64
	if v, ok := h.Get(args[1]); ok {
		f, ok := parseFloat(string(v))
		if !ok {
			return errGeneric("hash value is not a float")
		}
		cur = f
	}
	next := cur + delta
	out := formatFloat(next)
	h.Set(args[1], []byte(out))
	db.Touch(args[0])
	return bulkReply([]byte(out))
}

func cmdHStrlen(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	h, existed, bad := getHash(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	v, ok := h.Get(args[1])
	if !ok {
		return intReply(0)
	}
	return intReply(int64(len(v)))
}
