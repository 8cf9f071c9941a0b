// Package dispatch implements the command table and per-connection
// execution loop: arity/auth/subscribe-mode checks, MULTI/EXEC queuing,
// and the prologue every handler shares (type checking, WATCH touch,
// AOF logging, metrics).
package dispatch

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/metrics"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/pubsub"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
	"github.com/gofast-project/gofastd/internal/txn"
)

// HandlerFunc executes one command's body. args excludes the command
// name itself, mirroring txn.WriteKeys's argument convention.
type HandlerFunc func(d *Dispatcher, conn *ConnState, args []string) resp.Value

// commandSpec is one row of the dispatch table, driving dispatch from
// data instead of a giant switch statement.
type commandSpec struct {
	name           string
	minArgs        int // total args including the command name
	maxArgs        int // -1 means unbounded
	write          bool
	allowSubscribe bool
	handler        HandlerFunc
}

// Dispatcher holds every process-wide collaborator a command handler
// might need: the keyspace, the transaction manager, the pub/sub
// registry, metrics, and (optionally) the AOF writer.
type Dispatcher struct {
	Keyspace *store.Keyspace
	Txn      *txn.Manager
	PubSub   *pubsub.Registry
	Metrics  *metrics.Metrics
	AOF      *persistence.AOF
	Config   *config.Config

	commands map[string]*commandSpec
	nextConn int64

	// lastSaveUnix is the commit time of the last successful SAVE/
	// BGSAVE, reported by LASTSAVE; it starts at construction time so a
	// server that never saves still reports something sane.
	lastSaveUnix int64
}

func New(ks *store.Keyspace, tm *txn.Manager, ps *pubsub.Registry, m *metrics.Metrics, cfg *config.Config) *Dispatcher {
	d := &Dispatcher{Keyspace: ks, Txn: tm, PubSub: ps, Metrics: m, Config: cfg, lastSaveUnix: time.Now().Unix()}
	d.commands = buildCommandTable()
	return d
}

// markSaved records the current time as the dispatcher's last
// successful snapshot commit, consulted by LASTSAVE.
func (d *Dispatcher) markSaved() {
	now := time.Now().Unix()
	atomic.StoreInt64(&d.lastSaveUnix, now)
	if d.Metrics != nil {
		d.Metrics.LastSaveUnixTime.Set(float64(now))
	}
}

// NewConn allocates a ConnState with a fresh connection id.
func (d *Dispatcher) NewConn() *ConnState {
	id := atomic.AddInt64(&d.nextConn, 1)
	authenticated := d.Config == nil || !d.Config.RequireAuth
	return NewConnState(id, authenticated)
}

// CloseConn releases everything a connection held: its transaction, its
// pub/sub subscriptions, and its watches.
func (d *Dispatcher) CloseConn(conn *ConnState) {
	if d.Txn != nil {
		d.Txn.RemoveConn(conn.ID)
	}
	if d.PubSub != nil && conn.Sub != nil {
		d.PubSub.UnsubscribeAll(conn.Sub)
	}
}

// Dispatch executes one fully-decoded command (fullArgs[0] is the
// command name) against conn's state and returns the reply to send.
// ctx governs blocking commands (BLPOP/BRPOP) and is ignored otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *ConnState, fullArgs []string) resp.Value {
	if len(fullArgs) == 0 {
		return errGeneric("empty command")
	}
	cmd := strings.ToUpper(fullArgs[0])
	args := fullArgs[1:]

	if d.Metrics != nil {
		d.Metrics.CommandsTotal.WithLabelValues(cmd).Inc()
	}

	if txn.IsTransactionCommand(cmd) {
		return d.dispatchTxnControl(conn, cmd, args)
	}

	spec, ok := d.commands[cmd]
	if !ok {
		if conn.Tx != nil && conn.Tx.State == txn.Started {
			conn.Tx.HadQueueError = true
		}
		return errUnknownCommand(strings.ToLower(cmd))
	}
	if !arityOK(spec, len(fullArgs)) {
		if conn.Tx != nil && conn.Tx.State == txn.Started {
			conn.Tx.HadQueueError = true
		}
		return errWrongArgs(strings.ToLower(cmd))
	}

	if d.Config != nil && d.Config.RequireAuth && !conn.Authenticated && cmd != "AUTH" && cmd != "QUIT" {
		return errNoAuth()
	}

	if conn.InSubscribeMode() && !spec.allowSubscribe {
		return errNotInSubscribe(strings.ToLower(cmd))
	}

	if conn.Tx != nil && conn.Tx.State == txn.Started {
		conn.Tx.Enqueue(cmd, args)
		return resp.NewSimpleString("QUEUED")
	}

	if cmd == "BLPOP" || cmd == "BRPOP" {
		return d.dispatchBlockingPop(ctx, conn, cmd, args)
	}

	return d.execute(conn, spec, cmd, args)
}

// execute runs spec's handler under the keyspace's serialization lock,
// then performs the write-path side effects (WATCH touch, AOF append).
func (d *Dispatcher) execute(conn *ConnState, spec *commandSpec, cmd string, args []string) resp.Value {
	if spec.write {
		d.Keyspace.Lock()
		defer d.Keyspace.Unlock()
	} else {
		d.Keyspace.RLock()
		defer d.Keyspace.RUnlock()
	}

	reply := spec.handler(d, conn, args)

	if spec.write && reply.Type != resp.Error {
		d.afterWrite(conn, cmd, args)
	}
	return reply
}

func (d *Dispatcher) afterWrite(conn *ConnState, cmd string, args []string) {
	if d.Txn != nil {
		switch cmd {
		case "FLUSHALL":
			d.Txn.MarkAllDirty()
		case "FLUSHDB":
			d.Txn.MarkDirtyForDB(conn.DBIndex)
		default:
			d.Txn.TouchKeys(conn.DBIndex, txn.WriteKeys(cmd, args))
		}
	}
	if d.AOF != nil {
		full := append([]string{cmd}, args...)
		if err := d.AOF.Append(full); err != nil && d.Metrics != nil {
			d.Metrics.AOFFsyncFailures.Inc()
		}
	}
}

func arityOK(spec *commandSpec, total int) bool {
	if total < spec.minArgs {
		return false
	}
	if spec.maxArgs != -1 && total > spec.maxArgs {
		return false
	}
	return true
}

func buildCommandTable() map[string]*commandSpec {
	tbl := make(map[string]*commandSpec)
	registerStringCommands(tbl)
	registerListCommands(tbl)
	registerHashCommands(tbl)
	registerSetCommands(tbl)
	registerZSetCommands(tbl)
	registerStreamCommands(tbl)
	registerBlockingPopTable(tbl)
	registerHLLCommands(tbl)
	registerBitmapCommands(tbl)
	registerKeyCommands(tbl)
	registerObjectCommands(tbl)
	registerAdminCommands(tbl)
	registerPubSubCommands(tbl)
	registerSortCommands(tbl)
	return tbl
}

func reg(tbl map[string]*commandSpec, name string, minArgs, maxArgs int, write, allowSub bool, h HandlerFunc) {
	tbl[name] = &commandSpec{name: name, minArgs: minArgs, maxArgs: maxArgs, write: write, allowSubscribe: allowSub, handler: h}
}
