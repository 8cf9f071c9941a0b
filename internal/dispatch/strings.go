package dispatch

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerStringCommands(tbl map[string]*commandSpec) {
	reg(tbl, "SET", 3, -1, true, false, cmdSet)
	reg(tbl, "GET", 2, 2, false, false, cmdGet)
	reg(tbl, "GETSET", 3, 3, true, false, cmdGetSet)
	reg(tbl, "GETDEL", 2, 2, true, false, cmdGetDel)
	reg(tbl, "GETEX", 2, -1, true, false, cmdGetEx)
	reg(tbl, "SETNX", 3, 3, true, false, cmdSetNX)
	reg(tbl, "SETEX", 4, 4, true, false, cmdSetEX)
	reg(tbl, "PSETEX", 4, 4, true, false, cmdPSetEX)
	reg(tbl, "APPEND", 3, 3, true, false, cmdAppend)
	reg(tbl, "STRLEN", 2, 2, false, false, cmdStrlen)
	reg(tbl, "INCR", 2, 2, true, false, cmdIncr)
	reg(tbl, "INCRBY", 3, 3, true, false, cmdIncrBy)
	reg(tbl, "INCRBYFLOAT", 3, 3, true, false, cmdIncrByFloat)
	reg(tbl, "DECR", 2, 2, true, false, cmdDecr)
	reg(tbl, "DECRBY", 3, 3, true, false, cmdDecrBy)
	reg(tbl, "MGET", 2, -1, false, false, cmdMGet)
	reg(tbl, "MSET", 3, -1, true, false, cmdMSet)
	reg(tbl, "MSETNX", 3, -1, true, false, cmdMSetNX)
	reg(tbl, "SETRANGE", 4, 4, true, false, cmdSetRange)
	reg(tbl, "GETRANGE", 4, 4, false, false, cmdGetRange)
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func cmdSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	key, val := args[0], args[1]
	rest := args[2:]

	var expiresAt int64
	keepTTL := false
	nx, xx, getFlag := false, false, false

	for i := 0; i < len(rest); i++ {
		opt := strings.ToUpper(rest[i])
		switch opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GET":
			getFlag = true
		case "KEEPTTL":
			keepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(rest) {
				return errSyntax()
			}
			n, ok := parseInt(rest[i+1])
			if !ok {
				return errNotInt()
			}
			i++
			switch opt {
			case "EX":
				expiresAt = nowMillis() + n*1000
			case "PX":
				expiresAt = nowMillis() + n
			case "EXAT":
				expiresAt = n * 1000
			case "PXAT":
				expiresAt = n
			}
		default:
			return errSyntax()
		}
	}
	if nx && xx {
		return errSyntax()
	}

	db := d.db(conn)
	var oldVal resp.Value = resp.NewNullBulk()
	if getFlag {
		sv, existed, bad := getString(db, key)
		if bad {
			return errWrongType()
		}
		if existed {
			oldVal = bulkReply(sv.Bytes)
		}
	}

	existing, existed := db.Peek(key)
	if nx && existed && !existing.Expired(nowMillis()) {
		if getFlag {
			return oldVal
		}
		return resp.NewNullBulk()
	}
	if xx && !existed {
		if getFlag {
			return oldVal
		}
		return resp.NewNullBulk()
	}

	if keepTTL && existed {
		db.Set(key, store.NewString([]byte(val)), existing.ExpiresAt)
	} else {
		db.Set(key, store.NewString([]byte(val)), expiresAt)
	}

	if getFlag {
		return oldVal
	}
	return okReply()
}

func cmdGet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	return bulkReply(sv.Bytes)
}

func cmdGetSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	sv, existed, bad := getString(db, args[0])
	if bad {
		return errWrongType()
	}
	db.Set(args[0], store.NewString([]byte(args[1])), 0)
	if !existed {
		return resp.NewNullBulk()
	}
	return bulkReply(sv.Bytes)
}

func cmdGetDel(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	sv, existed, bad := getString(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	db.Delete(args[0])
	return bulkReply(sv.Bytes)
}

func cmdGetEx(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	key := args[0]
	sv, existed, bad := getString(db, key)
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewNullBulk()
	}
	rest := args[1:]
	persist := false
	var expiresAt int64
	setExpiry := false
	for i := 0; i < len(rest); i++ {
		opt := strings.ToUpper(rest[i])
		switch opt {
		case "PERSIST":
			persist = true
		case "EX", "PX", "EXAT", "PXAT":
			if i+1 >= len(rest) {
				return errSyntax()
			}
			n, ok := parseInt(rest[i+1])
			if !ok {
				return errNotInt()
			}
			i++
			setExpiry = true
			switch opt {
			case "EX":
				expiresAt = nowMillis() + n*1000
			case "PX":
				expiresAt = nowMillis() + n
			case "EXAT":
				expiresAt = n * 1000
			case "PXAT":
				expiresAt = n
			}
		default:
			return errSyntax()
		}
	}
	if persist {
		db.Expire(key, 0)
	} else if setExpiry {
		db.Expire(key, expiresAt)
	}
	return bulkReply(sv.Bytes)
}

func cmdSetNX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	if db.Exists(args[0]) {
		return intReply(0)
	}
	db.Set(args[0], store.NewString([]byte(args[1])), 0)
	return intReply(1)
}

func cmdSetEX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	n, ok := parseInt(args[1])
	if !ok || n <= 0 {
		return errGeneric("invalid expire time in 'setex' command")
	}
	d.db(conn).Set(args[0], store.NewString([]byte(args[2])), nowMillis()+n*1000)
	return okReply()
}

func cmdPSetEX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	n, ok := parseInt(args[1])
	if !ok || n <= 0 {
		return errGeneric("invalid expire time in 'psetex' command")
	}
	d.db(conn).Set(args[0], store.NewString([]byte(args[2])), nowMillis()+n)
	return okReply()
}

func cmdAppend(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	sv, existed, bad := getString(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		db.Set(args[0], store.NewString([]byte(args[1])), 0)
		return intReply(int64(len(args[1])))
	}
	combined := append(append([]byte{}, sv.Bytes...), args[1]...)
	db.Set(args[0], store.NewString(combined), 0)
	return intReply(int64(len(combined)))
}

func cmdStrlen(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(len(sv.Bytes)))
}

func incrByHelper(d *Dispatcher, conn *ConnState, key string, delta int64) resp.Value {
	db := d.db(conn)
	sv, existed, bad := getString(db, key)
	if bad {
		return errWrongType()
	}
	var cur int64
	if existed {
		n, ok := parseInt(string(sv.Bytes))
		if !ok {
			return errNotInt()
		}
		cur = n
	}
	next := cur + delta
	db.Set(key, store.NewString([]byte(strconv.FormatInt(next, 10))), 0)
	return intReply(next)
}

func cmdIncr(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return incrByHelper(d, conn, args[0], 1)
}

func cmdDecr(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return incrByHelper(d, conn, args[0], -1)
}

func cmdIncrBy(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	n, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	return incrByHelper(d, conn, args[0], n)
}

func cmdDecrBy(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	n, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	return incrByHelper(d, conn, args[0], -n)
}

func cmdIncrByFloat(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	delta, ok := parseFloat(args[1])
	if !ok {
		return errNotFloat()
	}
	db := d.db(conn)
	sv, existed, bad := getString(db, args[0])
	if bad {
		return errWrongType()
	}
	var cur float64
	if existed {
		f, ok := parseFloat(string(sv.Bytes))
		if !ok {
			return errNotFloat()
		}
		cur = f
	}
	next := cur + delta
	out := formatFloat(next)
	db.Set(args[0], store.NewString([]byte(out)), 0)
	return bulkReply([]byte(out))
}

func cmdMGet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	elems := make([]resp.Value, len(args))
	for i, key := range args {
		sv, existed, bad := getString(db, key)
		if bad || !existed {
			elems[i] = resp.NewNullBulk()
			continue
		}
		elems[i] = bulkReply(sv.Bytes)
	}
	return resp.NewArray(elems)
}

func cmdMSet(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args)%2 != 0 {
		return errWrongArgs("mset")
	}
	db := d.db(conn)
	for i := 0; i+1 < len(args); i += 2 {
		db.Set(args[i], store.NewString([]byte(args[i+1])), 0)
	}
	return okReply()
}

func cmdMSetNX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args)%2 != 0 {
		return errWrongArgs("msetnx")
	}
	db := d.db(conn)
	for i := 0; i+1 < len(args); i += 2 {
		if db.Exists(args[i]) {
			return intReply(0)
		}
	}
	for i := 0; i+1 < len(args); i += 2 {
		db.Set(args[i], store.NewString([]byte(args[i+1])), 0)
	}
	return intReply(1)
}

func cmdSetRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 {
		return errGeneric("offset is out of range")
	}
	db := d.db(conn)
	sv, existed, bad := getString(db, args[0])
	if bad {
		return errWrongType()
	}
	var buf []byte
	if existed {
		buf = append([]byte{}, sv.Bytes...)
	}
	patch := []byte(args[2])
	need := int(offset) + len(patch)
	if len(buf) < need {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[offset:], patch)
	db.Set(args[0], store.NewString(buf), 0)
	return intReply(int64(len(buf)))
}

func cmdGetRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	start, ok1 := parseInt(args[1])
	end, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInt()
	}
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return bulkReply(nil)
	}
	s, e := normByteRange(len(sv.Bytes), int(start), int(end))
	if s > e || len(sv.Bytes) == 0 {
		return bulkReply(nil)
	}
	return bulkReply(sv.Bytes[s : e+1])
}
