package dispatch

import (
	"context"
	"time"

	"github.com/gofast-project/gofastd/internal/blocking"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

func registerBlockingPopTable(tbl map[string]*commandSpec) {
	reg(tbl, "BLPOP", 3, -1, true, false, cmdBLPopQueued)
	reg(tbl, "BRPOP", 3, -1, true, false, cmdBRPopQueued)
}

// cmdBLPopQueued/cmdBRPopQueued back BLPOP/BRPOP when issued inside a
// MULTI/EXEC block, where blocking is not allowed: Redis treats them as
// a single non-blocking attempt in that context.
func cmdBLPopQueued(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return nonBlockingPopAttempt(d.db(conn), args, true)
}

func cmdBRPopQueued(d *Dispatcher, conn *ConnState, args []string) resp.Value {
	return nonBlockingPopAttempt(d.db(conn), args, false)
}

func nonBlockingPopAttempt(db *store.Database, args []string, left bool) resp.Value {
	if len(args) < 2 {
		return errWrongArgs("blpop")
	}
	keys := args[:len(args)-1]
	for _, key := range keys {
		if v, ok := listPop(db, key, left); ok {
			return resp.NewStringArray([][]byte{[]byte(key), v})
		}
	}
	return resp.NewNullArray()
}

// dispatchBlockingPop implements the real blocking behavior for a
// standalone BLPOP/BRPOP: it polls each key, then parks on their wait
// channels via internal/blocking until one is pushed to, the timeout
// elapses, or the connection's context is cancelled.
func (d *Dispatcher) dispatchBlockingPop(ctx context.Context, conn *ConnState, cmd string, args []string) resp.Value {
	if len(args) < 2 {
		return errWrongArgs(cmd)
	}
	keys := args[:len(args)-1]
	timeoutSec, ok := parseFloat(args[len(args)-1])
	if !ok || timeoutSec < 0 {
		return errGeneric("timeout is not a float or negative")
	}
	timeout := time.Duration(timeoutSec * float64(time.Second))
	left := cmd == "BLPOP"

	db := d.db(conn)
	popFn := func(db *store.Database, key string) ([]byte, bool) {
		d.Keyspace.Lock()
		defer d.Keyspace.Unlock()
		v, ok := listPop(db, key, left)
		if ok && d.AOF != nil {
			popCmd := "RPOP"
			if left {
				popCmd = "LPOP"
			}
			if err := d.AOF.Append([]string{popCmd, key}); err != nil && d.Metrics != nil {
				d.Metrics.AOFFsyncFailures.Inc()
			}
		}
		return v, ok
	}

	if d.Metrics != nil {
		d.Metrics.BlockedClients.Inc()
		defer d.Metrics.BlockedClients.Dec()
	}

	result, err := blocking.WaitForAny(ctx, db, keys, timeout, popFn)
	if err != nil || result == nil {
		return resp.NewNullArray()
	}
	return resp.NewStringArray([][]byte{[]byte(result.Key), result.Value})
}
