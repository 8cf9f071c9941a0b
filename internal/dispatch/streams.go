package dispatch

import (
	"strconv"
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerStreamCommands(tbl map[string]*commandSpec) {
	reg(tbl, "XADD", 5, -1, true, false, cmdXAdd)
	reg(tbl, "XLEN", 2, 2, false, false, cmdXLen)
	reg(tbl, "XRANGE", 4, 6, false, false, cmdXRange)
	reg(tbl, "XREVRANGE", 4, 6, false, false, cmdXRevRange)
	reg(tbl, "XDEL", 3, -1, true, false, cmdXDel)
	reg(tbl, "XTRIM", 4, 4, true, false, cmdXTrim)
}

func parseStreamID(s string, nowMs int64, seqDefault int64) (store.StreamID, error) {
	if s == "*" {
		return store.StreamID{Ms: nowMs, Seq: 0}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return store.StreamID{}, err
	}
	if len(parts) == 1 {
		return store.StreamID{Ms: ms, Seq: seqDefault}, nil
	}
	if parts[1] == "*" {
		return store.StreamID{Ms: ms, Seq: seqDefault}, nil
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return store.StreamID{}, err
	}
	return store.StreamID{Ms: ms, Seq: seq}, nil
}

func cmdXAdd(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	key := args[0]
	idSpec := args[1]
	fieldArgs := args[2:]
	if len(fieldArgs)%2 != 0 || len(fieldArgs) == 0 {
		return errWrongArgs("xadd")
	}
	db := d.db(conn)
	_, _, bad := getStream(db, key)
	if bad {
		return errWrongType()
	}
	e, _ := db.GetOrCreate(key, func() store.Value { return store.NewStream() })
	s := e.Value.(*store.Stream)

	var id store.StreamID
	if idSpec == "*" {
		id = s.NextID(nowMillis())
	} else {
		parsed, err := parseStreamID(idSpec, nowMillis(), 0)
		if err != nil {
			return errGeneric("Invalid stream ID specified as stream command argument")
		}
		id = parsed
	}

	fields := make([][2][]byte, 0, len(fieldArgs)/2)
	for i := 0; i+1 < len(fieldArgs); i += 2 {
		fields = append(fields, [2][]byte{[]byte(fieldArgs[i]), []byte(fieldArgs[i+1])})
	}
	if err := s.Append(id, fields); err != nil {
		return resp.NewError(err.Error())
	}
	db.Touch(key)
	return bulkReply([]byte(id.String()))
}

func cmdXLen(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	s, existed, bad := getStream(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	return intReply(int64(s.Len()))
}

func streamEntriesReply(entries []store.StreamEntry) resp.Value {
	elems := make([]resp.Value, len(entries))
	for i, e := range entries {
		fieldElems := make([]resp.Value, 0, len(e.Fields)*2)
		for _, fv := range e.Fields {
			fieldElems = append(fieldElems, bulkReply(fv[0]), bulkReply(fv[1]))
		}
		elems[i] = resp.NewArray([]resp.Value{
			bulkReply([]byte(e.ID.String())),
			resp.NewArray(fieldElems),
		})
	}
	return resp.NewArray(elems)
}

func parseRangeBound(s string, low bool) (store.StreamID, bool) {
	switch s {
	case "-":
		return store.StreamID{Ms: 0, Seq: 0}, true
	case "+":
		return store.StreamID{Ms: 1<<63 - 1, Seq: 1<<63 - 1}, true
	}
	def := int64(0)
	if !low {
		def = 1<<63 - 1
	}
	id, err := parseStreamID(s, 0, def)
	return id, err == nil
}

func cmdXRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return xRangeImpl(d, conn, args, false)
}

func cmdXRevRange(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return xRangeImpl(d, conn, args, true)
}

func xRangeImpl(d *Dispatcher, conn *ConnState, args []string, reverse bool) resp.Value {
	startArg, endArg := args[1], args[2]
	if reverse {
		startArg, endArg = args[2], args[1]
	}
	start, ok1 := parseRangeBound(startArg, true)
	end, ok2 := parseRangeBound(endArg, false)
	if !ok1 || !ok2 {
		return errGeneric("Invalid stream ID specified as stream command argument")
	}
	count := -1
	if len(args) == 5 {
		if strings.ToUpper(args[3]) != "COUNT" {
			return errSyntax()
		}
		n, ok := parseInt(args[4])
		if !ok {
			return errNotInt()
		}
		count = int(n)
	}
	s, existed, bad := getStream(d.db(conn), args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return resp.NewArray(nil)
	}
	entries := s.Range(start, end, count)
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return streamEntriesReply(entries)
}

func cmdXDel(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	db := d.db(conn)
	s, existed, bad := getStream(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	ids := make([]store.StreamID, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := parseStreamID(a, 0, 0)
		if err != nil {
			return errGeneric("Invalid stream ID specified as stream command argument")
		}
		ids = append(ids, id)
	}
	removed := s.Delete(ids)
	if removed > 0 {
		db.Touch(args[0])
	}
	return intReply(int64(removed))
}

func cmdXTrim(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	strategy := strings.ToUpper(args[1])
	if strategy != "MAXLEN" {
		return errSyntax()
	}
	threshold := args[2]
	threshold = strings.TrimPrefix(threshold, "~")
	threshold = strings.TrimPrefix(threshold, "=")
	maxLen, ok := parseInt(threshold)
	if !ok {
		return errNotInt()
	}
	db := d.db(conn)
	s, existed, bad := getStream(db, args[0])
	if bad {
		return errWrongType()
	}
	if !existed {
		return intReply(0)
	}
	all := s.Range(store.StreamID{Ms: 0, Seq: 0}, store.StreamID{Ms: 1<<63 - 1, Seq: 1<<63 - 1}, 0)
	if int64(len(all)) <= maxLen {
		return intReply(0)
	}
	toRemove := all[:int64(len(all))-maxLen]
	ids := make([]store.StreamID, len(toRemove))
	for i, e := range toRemove {
		ids[i] = e.ID
	}
	removed := s.Delete(ids)
	if removed > 0 {
		db.Touch(args[0])
	}
	return intReply(int64(removed))
}
