package dispatch

import (
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerBitmapCommands(tbl map[string]*commandSpec) {
	reg(tbl, "SETBIT", 4, 4, true, false, cmdSetBit)
	reg(tbl, "GETBIT", 3, 3, false, false, cmdGetBit)
	reg(tbl, "BITCOUNT", 2, 4, false, false, cmdBitCount)
	reg(tbl, "BITPOS", 3, 5, false, false, cmdBitPos)
	reg(tbl, "BITOP", 4, -1, true, false, cmdBitOp)
}

func cmdSetBit(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 {
		return errGeneric("bit offset is not an integer or out of range")
	}
	val, ok := parseInt(args[2])
	if !ok || (val != 0 && val != 1) {
		return errGeneric("bit is not an integer or out of range")
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
	buf, old := store.SetBit(buf, offset, byte(val))
	db.Set(args[0], store.NewString(buf), 0)
	return intReply(int64(old))
}

func cmdGetBit(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	offset, ok := parseInt(args[1])
	if !ok || offset < 0 {
		return errGeneric("bit offset is not an integer or out of range")
	}
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(store.GetBit(sv.Bytes, offset)))
}

func cmdBitCount(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	start, end := 0, len(sv.Bytes)-1
	switch len(args) {
	case 1:
		// no range given, whole string
	case 3:
		s, ok1 := parseInt(args[1])
		e, ok2 := parseInt(args[2])
		if !ok1 || !ok2 {
			return errNotInt()
		}
		start, end = int(s), int(e)
	default:
		return errSyntax()
	}
	return intReply(store.BitCount(sv.Bytes, start, end))
}

func cmdBitPos(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	target, ok := parseInt(args[1])
	if !ok || (target != 0 && target != 1) {
		return errGeneric("The bit argument must be 1 or 0.")
	}
	sv, existed, bad := getString(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		if target == 0 {
			return intReply(0)
		}
		return intReply(-1)
	}
	start, end, endGiven := 0, 0, false
	if len(args) >= 3 {
		s, ok := parseInt(args[2])
		if !ok {
			return errNotInt()
		}
		start = int(s)
	}
	if len(args) >= 4 {
		e, ok := parseInt(args[3])
		if !ok {
			return errNotInt()
		}
		end = int(e)
		endGiven = true
	}
	return intReply(store.BitPos(sv.Bytes, byte(target), start, end, endGiven))
}

func cmdBitOp(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	op := strings.ToUpper(args[0])
	dest := args[1]
	srcKeys := args[2:]
	if op == "NOT" && len(srcKeys) != 1 {
		return errGeneric("BITOP NOT must be called with a single source key.")
	}
	db := d.db(conn)
	srcs := make([][]byte, len(srcKeys))
	for i, key := range srcKeys {
		sv, existed, bad := getString(db, key)
		if bad {
			return errWrongType()
		}
		if existed {
			srcs[i] = sv.Bytes
		}
	}
	result := store.BitOp(op, srcs)
	if len(result) == 0 {
		db.Delete(dest)
		return intReply(0)
	}
	db.Set(dest, store.NewString(result), 0)
	return intReply(int64(len(result)))
}
