package dispatch

import (
	"strings"

	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/txn"
)

// dispatchTxnControl handles MULTI/EXEC/DISCARD/WATCH/UNWATCH, which
// bypass the normal command table because they drive the queuing state
// machine itself rather than being queueable commands.
func (d *Dispatcher) dispatchTxnControl(conn *ConnState, cmd string, args []string) resp.Value {
	switch cmd {
	case "MULTI":
		return d.cmdMulti(conn, args)
	case "EXEC":
		return d.cmdExec(conn, args)
	case "DISCARD":
		return d.cmdDiscard(conn, args)
	case "WATCH":
		return d.cmdWatch(conn, args)
	case "UNWATCH":
		return d.cmdUnwatch(conn, args)
	}
	return errGeneric("unreachable transaction command")
}

func (d *Dispatcher) cmdMulti(conn *ConnState, args []string) resp.Value {
	if len(args) != 0 {
		return errWrongArgs("multi")
	}
	tx := d.Txn.Get(conn.ID)
	if tx.State == txn.Started {
		return errGeneric("MULTI calls can not be nested")
	}
	tx.State = txn.Started
	tx.Queue = nil
	tx.HadQueueError = false
	conn.Tx = tx
	return okReply()
}

func (d *Dispatcher) cmdDiscard(conn *ConnState, args []string) resp.Value {
	if len(args) != 0 {
		return errWrongArgs("discard")
	}
	if conn.Tx == nil || conn.Tx.State != txn.Started {
		return errGeneric("DISCARD without MULTI")
	}
	d.Txn.UnwatchAll(conn.ID)
	conn.Tx.Reset()
	return okReply()
}

func (d *Dispatcher) cmdWatch(conn *ConnState, args []string) resp.Value {
	if len(args) == 0 {
		return errWrongArgs("watch")
	}
	if conn.Tx != nil && conn.Tx.State == txn.Started {
		return errGeneric("WATCH inside MULTI is not allowed")
	}
	tx := d.Txn.Get(conn.ID)
	conn.Tx = tx
	for _, key := range args {
		d.Txn.Watch(conn.ID, conn.DBIndex, key)
	}
	return okReply()
}

func (d *Dispatcher) cmdUnwatch(conn *ConnState, args []string) resp.Value {
	if len(args) != 0 {
		return errWrongArgs("unwatch")
	}
	d.Txn.UnwatchAll(conn.ID)
	return okReply()
}

// cmdExec runs every queued command atomically under one keyspace write
// lock. A queue-time error (unknown command or bad arity while queuing)
// aborts the whole transaction; a dirty watch aborts it by returning a
// null array instead of running anything.
func (d *Dispatcher) cmdExec(conn *ConnState, args []string) resp.Value {
	if len(args) != 0 {
		return errWrongArgs("exec")
	}
	if conn.Tx == nil || conn.Tx.State != txn.Started {
		return errGeneric("EXEC without MULTI")
	}
	tx := conn.Tx
	queued := tx.Queue
	hadError := tx.HadQueueError
	dirty := tx.Dirty

	tx.Reset()
	d.Txn.UnwatchAll(conn.ID)
	conn.Tx = nil

	if hadError {
		return errExecAbort()
	}
	if dirty {
		return resp.NewNullArray()
	}

	d.Keyspace.Lock()
	defer d.Keyspace.Unlock()

	replies := make([]resp.Value, 0, len(queued))
	for _, q := range queued {
		replies = append(replies, d.runQueued(conn, q.Name, q.Args))
	}
	return resp.NewArray(replies)
}

// runQueued executes one previously-queued command's handler directly,
// reusing the keyspace lock EXEC already holds rather than re-acquiring
// it per command.
func (d *Dispatcher) runQueued(conn *ConnState, cmd string, args []string) resp.Value {
	upper := strings.ToUpper(cmd)
	spec, ok := d.commands[upper]
	if !ok {
		return errUnknownCommand(strings.ToLower(upper))
	}
	reply := spec.handler(d, conn, args)
	if spec.write && reply.Type != resp.Error {
		d.afterWrite(conn, upper, args)
	}
	return reply
}
