package dispatch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/metrics"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/pubsub"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
	"github.com/gofast-project/gofastd/internal/txn"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestDispatcher() (*Dispatcher, *ConnState) {
	ks := store.NewKeyspace(4, 0, store.NoEviction)
	tm := txn.NewManager()
	ps := pubsub.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	d := New(ks, tm, ps, m, nil)
	return d, d.NewConn()
}

func do(d *Dispatcher, conn *ConnState, args ...string) resp.Value {
	return d.Dispatch(context.Background(), conn, args)
}

func TestSetGetRoundTrip(t *testing.T) {
	d, conn := newTestDispatcher()

	reply := do(d, conn, "SET", "foo", "bar")
	require.Equal(t, resp.NewSimpleString("OK"), reply)

	reply = do(d, conn, "GET", "foo")
	require.Equal(t, resp.Bulk, reply.Type)
	require.Equal(t, []byte("bar"), reply.Str)
}

func TestGetMissingKeyReturnsNullBulk(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "GET", "nope")
	require.Equal(t, resp.Bulk, reply.Type)
	require.True(t, reply.Null)
}

func TestWrongTypeError(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "RPUSH", "alist", "a")
	reply := do(d, conn, "GET", "alist")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "WRONGTYPE")
}

func TestUnknownCommand(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "FROBNICATE", "x")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "unknown command")
}

func TestWrongNumberOfArguments(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "SET", "onlyonearg")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "wrong number of arguments")
}

func TestSelectSwitchesDatabase(t *testing.T) {
	d, conn := newTestDispatcher()
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn, "SET", "k", "v0"))

	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn, "SELECT", "1"))
	reply := do(d, conn, "GET", "k")
	require.True(t, reply.Null)

	do(d, conn, "SET", "k", "v1")
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn, "SELECT", "0"))
	reply = do(d, conn, "GET", "k")
	require.Equal(t, []byte("v0"), reply.Str)
}

func TestSelectOutOfRangeErrors(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "SELECT", "99")
	require.Equal(t, resp.Error, reply.Type)
}

func TestAuthGatingRequiresPasswordFirst(t *testing.T) {
	ks := store.NewKeyspace(1, 0, store.NoEviction)
	tm := txn.NewManager()
	ps := pubsub.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	cfg := config.DefaultConfig()
	cfg.RequireAuth = true
	cfg.Password = "secret"
	d := New(ks, tm, ps, m, cfg)
	conn := d.NewConn()
	require.False(t, conn.Authenticated)

	reply := do(d, conn, "GET", "k")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "NOAUTH")

	reply = do(d, conn, "AUTH", "wrong")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "WRONGPASS")

	reply = do(d, conn, "AUTH", "secret")
	require.Equal(t, resp.NewSimpleString("OK"), reply)
	require.True(t, conn.Authenticated)

	reply = do(d, conn, "GET", "k")
	require.True(t, reply.Null)
}

func TestMultiExecQueuesAndRuns(t *testing.T) {
	d, conn := newTestDispatcher()

	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn, "MULTI"))
	require.Equal(t, resp.NewSimpleString("QUEUED"), do(d, conn, "SET", "a", "1"))
	require.Equal(t, resp.NewSimpleString("QUEUED"), do(d, conn, "INCR", "a"))

	reply := do(d, conn, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.Len(t, reply.Elems, 2)
	require.Equal(t, resp.NewSimpleString("OK"), reply.Elems[0])
	require.Equal(t, int64(2), reply.Elems[1].Int)

	require.Nil(t, conn.Tx)
}

func TestMultiDiscard(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "MULTI")
	do(d, conn, "SET", "a", "1")

	reply := do(d, conn, "DISCARD")
	require.Equal(t, resp.NewSimpleString("OK"), reply)

	reply = do(d, conn, "GET", "a")
	require.True(t, reply.Null)
}

func TestDiscardWithoutMultiErrors(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "DISCARD")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "DISCARD without MULTI")
}

func TestExecWithoutMultiErrors(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "EXEC")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "EXEC without MULTI")
}

func TestMultiQueueErrorAbortsExec(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "MULTI")
	reply := do(d, conn, "NOTACOMMAND")
	require.Equal(t, resp.Error, reply.Type)

	reply = do(d, conn, "EXEC")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "EXECABORT")
}

func TestWatchDirtiedByAnotherConnAbortsExec(t *testing.T) {
	d, conn1 := newTestDispatcher()
	conn2 := d.NewConn()

	do(d, conn1, "SET", "watched", "0")
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn1, "WATCH", "watched"))
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn1, "MULTI"))
	require.Equal(t, resp.NewSimpleString("QUEUED"), do(d, conn1, "SET", "watched", "1"))

	do(d, conn2, "SET", "watched", "from-elsewhere")

	reply := do(d, conn1, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.True(t, reply.Null)
}

func TestWatchUntouchedKeyExecRuns(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "watched", "0")
	do(d, conn, "WATCH", "watched")
	do(d, conn, "MULTI")
	do(d, conn, "SET", "watched", "1")

	reply := do(d, conn, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.False(t, reply.Null)

	reply = do(d, conn, "GET", "watched")
	require.Equal(t, []byte("1"), reply.Str)
}

func TestWatchNotDirtiedByWriteToSameKeyInOtherDB(t *testing.T) {
	d, conn1 := newTestDispatcher()
	conn2 := d.NewConn()
	do(d, conn2, "SELECT", "1")

	do(d, conn1, "SET", "watched", "0")
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn1, "WATCH", "watched"))
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn1, "MULTI"))
	require.Equal(t, resp.NewSimpleString("QUEUED"), do(d, conn1, "SET", "watched", "1"))

	// same key name, different (SELECTed) database: must not dirty conn1's watch
	do(d, conn2, "SET", "watched", "from-other-db")

	reply := do(d, conn1, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.False(t, reply.Null, "a write to the same key name in a different database must not abort the transaction")

	reply = do(d, conn1, "GET", "watched")
	require.Equal(t, []byte("1"), reply.Str)
}

func TestWatchInsideMultiDisallowed(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "MULTI")
	reply := do(d, conn, "WATCH", "k")
	require.Equal(t, resp.Error, reply.Type)
}

func TestUnwatchClearsWatch(t *testing.T) {
	d, conn1 := newTestDispatcher()
	conn2 := d.NewConn()

	do(d, conn1, "SET", "watched", "0")
	do(d, conn1, "WATCH", "watched")
	do(d, conn1, "UNWATCH")
	do(d, conn1, "MULTI")
	do(d, conn1, "SET", "watched", "1")

	do(d, conn2, "SET", "watched", "changed")

	reply := do(d, conn1, "EXEC")
	require.False(t, reply.Null)
}

func TestSubscribeRestrictsCommandSet(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SUBSCRIBE", "chan1")
	require.True(t, conn.InSubscribeMode())

	reply := do(d, conn, "GET", "k")
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "only (P)SUBSCRIBE")

	reply = do(d, conn, "PING")
	require.NotEqual(t, resp.Error, reply.Type)
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	d, conn1 := newTestDispatcher()
	conn2 := d.NewConn()

	do(d, conn1, "SUBSCRIBE", "news")

	reply := do(d, conn2, "PUBLISH", "news", "hello")
	require.Equal(t, int64(1), reply.Int)

	select {
	case msg := <-conn1.Sub.Inbox:
		require.Equal(t, "news", msg.Channel)
		require.Equal(t, []byte("hello"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected message on subscriber inbox")
	}
}

func TestBLPopReturnsImmediatelyWhenDataPresent(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "RPUSH", "q", "v1")

	reply := do(d, conn, "BLPOP", "q", "0")
	require.Equal(t, resp.Array, reply.Type)
	require.Equal(t, []byte("q"), reply.Elems[0].Str)
	require.Equal(t, []byte("v1"), reply.Elems[1].Str)
}

func TestBLPopTimesOutToNullArray(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "BLPOP", "missing", "0.05")
	require.Equal(t, resp.Array, reply.Type)
	require.True(t, reply.Null)
}

func TestBLPopInsideMultiIsNonBlocking(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "MULTI")
	do(d, conn, "BLPOP", "missing", "0")
	reply := do(d, conn, "EXEC")
	require.Equal(t, resp.Array, reply.Type)
	require.Len(t, reply.Elems, 1)
	require.True(t, reply.Elems[0].Null)
}

func TestDelExistsAndType(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "k", "v")
	do(d, conn, "RPUSH", "l", "a")

	reply := do(d, conn, "EXISTS", "k", "l", "missing")
	require.Equal(t, int64(2), reply.Int)

	reply = do(d, conn, "TYPE", "l")
	require.Equal(t, resp.SimpleString, reply.Type)
	require.Equal(t, "list", string(reply.Str))

	reply = do(d, conn, "DEL", "k", "l", "missing")
	require.Equal(t, int64(2), reply.Int)

	reply = do(d, conn, "EXISTS", "k")
	require.Equal(t, int64(0), reply.Int)
}

func TestExpireAndTTL(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "k", "v")

	reply := do(d, conn, "EXPIRE", "k", "100")
	require.Equal(t, int64(1), reply.Int)

	reply = do(d, conn, "TTL", "k")
	require.True(t, reply.Int > 0 && reply.Int <= 100)

	reply = do(d, conn, "PERSIST", "k")
	require.Equal(t, int64(1), reply.Int)

	reply = do(d, conn, "TTL", "k")
	require.Equal(t, int64(-1), reply.Int)
}

func TestFlushAllClearsEveryDB(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "k0", "v")
	do(d, conn, "SELECT", "1")
	do(d, conn, "SET", "k1", "v")

	reply := do(d, conn, "FLUSHALL")
	require.Equal(t, resp.NewSimpleString("OK"), reply)

	reply = do(d, conn, "GET", "k1")
	require.True(t, reply.Null)
	do(d, conn, "SELECT", "0")
	reply = do(d, conn, "GET", "k0")
	require.True(t, reply.Null)
}

func TestAOFAppendOnWriteCommands(t *testing.T) {
	ks := store.NewKeyspace(1, 0, store.NoEviction)
	tm := txn.NewManager()
	ps := pubsub.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	d := New(ks, tm, ps, m, nil)
	conn := d.NewConn()

	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")
	aof, err := persistence.Open(path, persistence.FsyncAlways)
	require.NoError(t, err)
	d.AOF = aof

	do(d, conn, "SET", "k", "v")
	do(d, conn, "GET", "k")

	require.NoError(t, aof.Close())

	var replayed [][]string
	n, err := persistence.Replay(path, func(args []string) error {
		replayed = append(replayed, args)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"SET", "k", "v"}, replayed[0])
}
