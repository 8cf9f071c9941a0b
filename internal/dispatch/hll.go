package dispatch

import (
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerHLLCommands(tbl map[string]*commandSpec) {
	reg(tbl, "PFADD", 2, -1, true, false, cmdPFAdd)
	reg(tbl, "PFCOUNT", 2, -1, false, false, cmdPFCount)
	reg(tbl, "PFMERGE", 2, -1, true, false, cmdPFMerge)
}

func cmdPFAdd(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	_, existedBefore, bad := getHLL(db, args[0])
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(args[0], func() store.Value { return store.NewHyperLogLog() })
	h := e.Value.(*store.HyperLogLog)
	changed := false
	for _, el := range args[1:] {
		if h.Add([]byte(el)) {
			changed = true
		}
	}
	if !existedBefore || changed {
		db.Touch(args[0])
		return intReply(1)
	}
	return intReply(0)
}

func cmdPFCount(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	if len(args) == 1 {
		h, existed, bad := getHLL(db, args[0])
		if bad {
			return errWrongType()
		}
		if !existed {
			return intReply(0)
		}
		return intReply(int64(h.Count()))
	}
	merged := store.NewHyperLogLog()
	for _, key := range args {
		h, existed, bad := getHLL(db, key)
		if bad {
			return errWrongType()
		}
		if existed {
			merged.Merge(h)
		}
	}
	return intReply(int64(merged.Count()))
}

func cmdPFMerge(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	dest := args[0]
	_, _, bad := getHLL(db, dest)
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(dest, func() store.Value { return store.NewHyperLogLog() })
	destHLL := e.Value.(*store.HyperLogLog)
	for _, key := range args[1:] {
		h, existed, bad := getHLL(db, key)
		if bad {
			return errWrongType()
		}
		if existed {
			destHLL.Merge(h)
		}
	}
	db.Touch(dest)
	return okReply()
}
