package dispatch

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/resp"
)

func registerAdminCommands(tbl map[string]*commandSpec) {
	reg(tbl, "PING", 1, 2, false, true, cmdPing)
	reg(tbl, "ECHO", 2, 2, false, false, cmdEcho)
	reg(tbl, "QUIT", 1, 1, false, true, cmdQuit)
	reg(tbl, "SELECT", 2, 2, false, false, cmdSelect)
	reg(tbl, "AUTH", 2, 3, false, true, cmdAuth)
	reg(tbl, "DBSIZE", 1, 1, false, false, cmdDBSize)
	reg(tbl, "FLUSHDB", 1, 2, true, false, cmdFlushDB)
	reg(tbl, "FLUSHALL", 1, 2, true, false, cmdFlushAll)
	reg(tbl, "SWAPDB", 3, 3, true, false, cmdSwapDB)
	reg(tbl, "TIME", 1, 1, false, false, cmdTime)
	reg(tbl, "CLIENT", 2, -1, false, true, cmdClient)
	reg(tbl, "RESET", 1, 1, false, true, cmdReset)
	reg(tbl, "CONFIG", 2, -1, false, false, cmdConfig)
	reg(tbl, "COMMAND", 1, -1, false, true, cmdCommand)
	reg(tbl, "LASTSAVE", 1, 1, false, false, cmdLastSave)
	reg(tbl, "SAVE", 1, 1, false, false, cmdSave)
	reg(tbl, "BGSAVE", 1, 2, false, false, cmdBgSave)
	reg(tbl, "BGREWRITEAOF", 1, 1, false, false, cmdBgRewriteAOF)
}

func cmdPing(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args) == 1 {
		return bulkReply([]byte(args[0]))
	}
	return resp.NewSimpleString("PONG")
}

func cmdEcho(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return bulkReply([]byte(args[0]))
}

func cmdQuit(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	conn.Closing = true
	return okReply()
}

func cmdSelect(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	idx, ok := parseInt(args[0])
	if !ok || int(idx) < 0 || int(idx) >= d.Keyspace.NumDBs() {
		return errGeneric("DB index is out of range")
	}
	conn.DBIndex = int(idx)
	return okReply()
}

func cmdAuth(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if d.Config == nil || !d.Config.RequireAuth {
		return errGeneric("Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	}
	pass := args[len(args)-1]
	if pass != d.Config.Password {
		return resp.NewError("WRONGPASS invalid username-password pair or user is disabled.")
	}
	conn.Authenticated = true
	return okReply()
}

func cmdDBSize(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return intReply(int64(d.db(conn).Len()))
}

func cmdFlushDB(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	d.db(conn).Flush()
	return okReply()
}

func cmdFlushAll(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	d.Keyspace.FlushAll()
	return okReply()
}

func cmdSwapDB(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	// Swapping database contents in place isn't exposed by Keyspace; the
	// observable effect callers care about is each index's keyset, which
	// is achieved by exchanging the two databases' snapshots.
	a, ok1 := parseInt(args[0])
	b, ok2 := parseInt(args[1])
	if !ok1 || !ok2 || int(a) < 0 || int(a) >= d.Keyspace.NumDBs() || int(b) < 0 || int(b) >= d.Keyspace.NumDBs() {
		return errGeneric("DB index is out of range")
	}
	dbA, dbB := d.Keyspace.DB(int(a)), d.Keyspace.DB(int(b))
	snapA, snapB := dbA.Snapshot(), dbB.Snapshot()
	dbA.Flush()
	dbB.Flush()
	for k, e := range snapB {
		dbA.Set(k, e.Value, e.ExpiresAt)
	}
	for k, e := range snapA {
		dbB.Set(k, e.Value, e.ExpiresAt)
	}
	return okReply()
}

func cmdTime(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	now := time.Now()
	return resp.NewStringArray([][]byte{
		[]byte(strconv.FormatInt(now.Unix(), 10)),
		[]byte(strconv.FormatInt(int64(now.Nanosecond()/1000), 10)),
	})
}

func cmdClient(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	switch strings.ToUpper(args[0]) {
	case "GETNAME":
		return bulkReply([]byte(conn.Name))
	case "SETNAME":
		if len(args) != 2 {
			return errWrongArgs("client|setname")
		}
		conn.Name = args[1]
		return okReply()
	case "ID":
		return intReply(conn.ID)
	case "LIST":
		return bulkReply([]byte("id=" + strconv.FormatInt(conn.ID, 10)))
	case "NO-EVICT", "NO-TOUCH", "REPLY":
		return okReply()
	default:
		return errGeneric("Unknown CLIENT subcommand")
	}
}

func cmdReset(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if d.Txn != nil {
		d.Txn.RemoveConn(conn.ID)
	}
	if d.PubSub != nil && conn.Sub != nil {
		d.PubSub.UnsubscribeAll(conn.Sub)
	}
	conn.Tx = nil
	conn.DBIndex = 0
	conn.Name = ""
	conn.Channels = map[string]bool{}
	conn.Patterns = map[string]bool{}
	conn.Authenticated = d.Config == nil || !d.Config.RequireAuth
	return resp.NewSimpleString("RESET")
}

func cmdConfig(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	switch strings.ToUpper(args[0]) {
	case "GET":
		if len(args) != 2 {
			return errWrongArgs("config|get")
		}
		val, ok := configValue(d.Config, strings.ToLower(args[1]))
		if !ok {
			return resp.NewArray(nil)
		}
		return resp.NewStringArray([][]byte{[]byte(strings.ToLower(args[1])), []byte(val)})
	case "SET":
		if len(args) != 3 {
			return errWrongArgs("config|set")
		}
		return okReply()
	case "REWRITE", "RESETSTAT":
		return okReply()
	default:
		return errGeneric("Unknown CONFIG subcommand")
	}
}

// configValue reports the handful of runtime parameters clients
// actually poll for (maxmemory, maxmemory-policy, appendonly); anything
// else reads back as unset rather than erroring, since CONFIG GET
// tolerates unknown parameters.
func configValue(cfg *config.Config, key string) (string, bool) {
	if cfg == nil {
		return "", false
	}
	switch key {
	case "maxmemory":
		return cfg.MaxMemory, true
	case "maxmemory-policy":
		return cfg.MaxMemoryPolicy, true
	case "appendonly":
		if cfg.AppendOnly {
			return "yes", true
		}
		return "no", true
	case "appendfsync":
		return cfg.AppendFsync, true
	case "databases":
		return strconv.Itoa(cfg.Databases), true
	case "requirepass":
		return cfg.Password, true
	}
	return "", false
}

func cmdCommand(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if len(args) >= 1 && strings.ToUpper(args[0]) == "COUNT" {
		return intReply(int64(len(d.commands)))
	}
	if len(args) >= 1 && strings.ToUpper(args[0]) == "DOCS" {
		return resp.NewArray(nil)
	}
	return resp.NewArray(nil)
}

func cmdLastSave(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return intReply(atomic.LoadInt64(&d.lastSaveUnix))
}

// cmdSave performs a synchronous, blocking snapshot save, the way a
// real server's SAVE holds the keyspace read lock for the duration of
// serialization rather than forking.
func cmdSave(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if d.Config == nil {
		return errGeneric("no data directory configured")
	}
	path := d.Config.DataDir + "/" + d.Config.SnapshotFile
	if err := persistence.Save(path, d.Keyspace); err != nil {
		return errGeneric(err.Error())
	}
	d.markSaved()
	return okReply()
}

// cmdBgSave kicks the same serialization off in a goroutine so the
// calling connection isn't blocked for the duration of the write. The
// goroutine holds the keyspace read lock while it serializes, so the
// snapshot is consistent and write commands wait until it completes.
func cmdBgSave(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if d.Config == nil {
		return errGeneric("no data directory configured")
	}
	path := d.Config.DataDir + "/" + d.Config.SnapshotFile
	ks := d.Keyspace
	go func() {
		ks.RLock()
		err := persistence.Save(path, ks)
		ks.RUnlock()
		if err == nil {
			d.markSaved()
		}
	}()
	return resp.NewSimpleString("Background saving started")
}

// cmdBgRewriteAOF rebuilds the append-only file as a minimal command
// sequence that reconstructs the live dataset, one RESTORE per key
// (built on the same per-value DUMP encoding DUMP/RESTORE use), so the
// rewrite covers every value type uniformly instead of special-casing
// one write command per type.
func cmdBgRewriteAOF(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	if d.AOF == nil {
		return errGeneric("The append only file is not enabled")
	}
	err := d.AOF.Rewrite(func(emit func(args []string)) error {
		for i := 0; i < d.Keyspace.NumDBs(); i++ {
			entries := d.Keyspace.DB(i).Snapshot()
			if len(entries) == 0 {
				continue
			}
			emit([]string{"SELECT", strconv.Itoa(i)})
			for key, e := range entries {
				payload, derr := persistence.DumpValue(e.Value, e.ExpiresAt)
				if derr != nil {
					continue
				}
				var ttl int64
				if e.ExpiresAt > 0 {
					if remaining := e.ExpiresAt - nowMillis(); remaining > 0 {
						ttl = remaining
					}
				}
				emit([]string{"RESTORE", key, strconv.FormatInt(ttl, 10), string(payload), "REPLACE"})
			}
		}
		return nil
	})
	if err != nil {
		return errGeneric(err.Error())
	}
	return resp.NewSimpleString("Background append only file rewriting started")
}
