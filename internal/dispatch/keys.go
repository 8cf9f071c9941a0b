package dispatch

import (
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
)

func registerKeyCommands(tbl map[string]*commandSpec) {
	reg(tbl, "DEL", 2, -1, true, false, cmdDel)
	reg(tbl, "UNLINK", 2, -1, true, false, cmdDel)
	reg(tbl, "EXISTS", 2, -1, false, false, cmdExists)
	reg(tbl, "EXPIRE", 3, 3, true, false, cmdExpire)
	reg(tbl, "PEXPIRE", 3, 3, true, false, cmdPExpire)
	reg(tbl, "EXPIREAT", 3, 3, true, false, cmdExpireAt)
	reg(tbl, "PEXPIREAT", 3, 3, true, false, cmdPExpireAt)
	reg(tbl, "TTL", 2, 2, false, false, cmdTTL)
	reg(tbl, "PTTL", 2, 2, false, false, cmdPTTL)
	reg(tbl, "PERSIST", 2, 2, true, false, cmdPersist)
	reg(tbl, "TYPE", 2, 2, false, false, cmdType)
	reg(tbl, "RENAME", 3, 3, true, false, cmdRename)
	reg(tbl, "RENAMENX", 3, 3, true, false, cmdRenameNX)
	reg(tbl, "KEYS", 2, 2, false, false, cmdKeys)
	reg(tbl, "SCAN", 2, -1, false, false, cmdScan)
	reg(tbl, "RANDOMKEY", 1, 1, false, false, cmdRandomKey)
}

func cmdDel(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	n := 0
	for _, key := range args {
		if db.Delete(key) {
			n++
		}
	}
	return intReply(int64(n))
}

func cmdExists(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	n := 0
	for _, key := range args {
		if db.Exists(key) {
			n++
		}
	}
	return intReply(int64(n))
}

func expiryHelper(d *Dispatcher, conn *ConnState, args []string, toMs func(n int64) int64) resp.Value {
	n, ok := parseInt(args[1])
	if !ok {
		return errNotInt()
	}
	if !d.db(conn).Expire(args[0], toMs(n)) {
		return intReply(0)
	}
	return intReply(1)
}

func cmdExpire(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return expiryHelper(d, conn, args, func(n int64) int64 { return nowMillis() + n*1000 })
}

func cmdPExpire(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return expiryHelper(d, conn, args, func(n int64) int64 { return nowMillis() + n })
}

func cmdExpireAt(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return expiryHelper(d, conn, args, func(n int64) int64 { return n * 1000 })
}

func cmdPExpireAt(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return expiryHelper(d, conn, args, func(n int64) int64 { return n })
}

func cmdTTL(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	ms := d.db(conn).TTL(args[0])
	if ms < 0 {
		return intReply(ms)
	}
	return intReply((ms + 999) / 1000)
}

func cmdPTTL(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return intReply(d.db(conn).TTL(args[0]))
}

func cmdPersist(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	if db.TTL(args[0]) < 0 {
		return intReply(0)
	}
	db.Expire(args[0], 0)
	return intReply(1)
}

func cmdType(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	e, ok := d.db(conn).Peek(args[0])
	if !ok {
		return resp.NewSimpleString("none")
	}
	return resp.NewSimpleString(e.Value.Type().String())
}

func cmdRename(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if !d.db(conn).Rename(args[0], args[1]) {
		return errGeneric("no such key")
	}
	return okReply()
}

func cmdRenameNX(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	if !db.Exists(args[0]) {
		return errGeneric("no such key")
	}
	if db.Exists(args[1]) {
		return intReply(0)
	}
	db.Rename(args[0], args[1])
	return intReply(1)
}

func cmdKeys(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	keys := d.db(conn).Keys(args[0])
	return membersReply(keys)
}

// cmdScan implements a cursor-free SCAN: the whole matching key set is
// returned in a single pass with cursor "0". Real clients that loop
// until cursor==0 still terminate correctly.
func cmdScan(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	pattern := "*"
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "MATCH":
			if i+1 >= len(args) {
				return errSyntax()
			}
			pattern = args[i+1]
			i++
		case "COUNT":
			if i+1 >= len(args) {
				return errSyntax()
			}
			i++
		case "TYPE":
			if i+1 >= len(args) {
				return errSyntax()
			}
			i++
		default:
			return errSyntax()
		}
	}
	keys := d.db(conn).Keys(pattern)
	return resp.NewArray([]resp.Value{
		bulkReply([]byte("0")),
		membersReply(keys),
	})
}

func cmdRandomKey(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	k, ok := d.db(conn).RandomKey()
	if !ok {
		return resp.NewNullBulk()
	}
	return bulkReply([]byte(k))
}
