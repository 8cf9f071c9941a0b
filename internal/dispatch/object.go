package dispatch

import (
	"strings"

	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

// listpackThreshold is the element count above which a list/hash/zset
// is reported as its "big" encoding rather than its compact one; the
// label is advisory only and need not reflect a real layout switch.
const listpackThreshold = 128

func registerObjectCommands(tbl map[string]*commandSpec) {
	reg(tbl, "OBJECT", 2, 3, false, false, cmdObject)
	reg(tbl, "DUMP", 2, 2, false, false, cmdDump)
	reg(tbl, "RESTORE", 4, 5, true, false, cmdRestore)
}

func cmdObject(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	sub := strings.ToUpper(args[0])
	if sub == "HELP" {
		return resp.NewArray(nil)
	}
	if len(args) != 2 {
		return errWrongArgs("object|" + strings.ToLower(sub))
	}
	e, ok := d.db(conn).Peek(args[1])
	if !ok {
		return errGeneric("no such key")
	}
	switch sub {
	case "ENCODING":
		return bulkReply([]byte(objectEncoding(e.Value)))
	case "REFCOUNT":
		return intReply(1)
	case "IDLETIME":
		idleMs := nowMillis() - e.AccessMs
		if idleMs < 0 {
			idleMs = 0
		}
		return intReply(idleMs / 1000)
	case "FREQ":
		return intReply(0)
	default:
		return errGeneric("Unknown subcommand or wrong number of arguments for '" + strings.ToLower(sub) + "'")
	}
}

// objectEncoding reports the advisory, compatibility-cosmetic encoding
// label a real server would show for OBJECT ENCODING: stable for a
// given value shape, not tied to anything this store actually lays out
// in memory.
func objectEncoding(v store.Value) string {
	switch val := v.(type) {
	case *store.StringValue:
		if _, ok := parseInt(string(val.Bytes)); ok {
			return "int"
		}
		if len(val.Bytes) <= 44 {
			return "embstr"
		}
		return "raw"
	case *store.List:
		if val.Length() <= listpackThreshold {
			return "linkedlist"
		}
		return "quicklist"
	case *store.Hash:
		if val.Len() <= listpackThreshold {
			return "listpack"
		}
		return "hashtable"
	case *store.Set:
		for _, m := range val.Members() {
			if _, ok := parseInt(m); !ok {
				return "hashtable"
			}
		}
		return "intset"
	case *store.ZSet:
		if val.Card() <= listpackThreshold {
			return "listpack"
		}
		return "skiplist"
	case *store.Stream:
		return "stream"
	case *store.HyperLogLog:
		return "raw"
	default:
		return "unknown"
	}
}

func cmdDump(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	e, ok := d.db(conn).Peek(args[0])
	if !ok {
		return resp.NewNullBulk()
	}
	payload, err := persistence.DumpValue(e.Value, e.ExpiresAt)
	if err != nil {
		return errGeneric(err.Error())
	}
	return bulkReply(payload)
}

func cmdRestore(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	key, ttlStr, payload := args[0], args[1], args[2]
	replace := false
	if len(args) == 4 {
		if !strings.EqualFold(args[3], "REPLACE") {
			return errSyntax()
		}
		replace = true
	}
	ttl, ok := parseInt(ttlStr)
	if !ok || ttl < 0 {
		return errGeneric("Invalid TTL value, must be >= 0")
	}

	db := d.db(conn)
	if db.Exists(key) && !replace {
		return errGeneric("BUSYKEY Target key name already exists.")
	}

	value, _, err := persistence.RestoreValue([]byte(payload))
	if err != nil {
		return errGeneric("DUMP payload version or checksum are wrong")
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = nowMillis() + ttl
	}
	db.Set(key, value, expiresAt)
	return okReply()
}
