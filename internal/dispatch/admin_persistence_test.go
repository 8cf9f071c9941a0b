package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/metrics"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/pubsub"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
	"github.com/gofast-project/gofastd/internal/txn"
)

func newTestDispatcherWithConfig(t *testing.T) (*Dispatcher, *ConnState, *config.Config) {
	t.Helper()
	ks := store.NewKeyspace(2, 0, store.NoEviction)
	tm := txn.NewManager()
	ps := pubsub.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	d := New(ks, tm, ps, m, cfg)
	return d, d.NewConn(), cfg
}

func TestSaveThenGetLastSave(t *testing.T) {
	d, conn, cfg := newTestDispatcherWithConfig(t)
	do(d, conn, "SET", "k", "v")

	before := do(d, conn, "LASTSAVE").Int

	reply := do(d, conn, "SAVE")
	require.Equal(t, resp.NewSimpleString("OK"), reply)

	after := do(d, conn, "LASTSAVE").Int
	require.GreaterOrEqual(t, after, before)

	_, err := os.Stat(filepath.Join(cfg.DataDir, cfg.SnapshotFile))
	require.NoError(t, err)
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	d, conn, cfg := newTestDispatcherWithConfig(t)
	do(d, conn, "SET", "k", "v")
	do(d, conn, "RPUSH", "l", "a", "b")
	require.Equal(t, resp.NewSimpleString("OK"), do(d, conn, "SAVE"))

	restored := store.NewKeyspace(2, 0, store.NoEviction)
	require.NoError(t, persistence.Load(filepath.Join(cfg.DataDir, cfg.SnapshotFile), restored))

	e, ok := restored.DB(0).Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), e.Value.(*store.StringValue).Bytes)
}

func TestBgSaveWritesFileAsynchronously(t *testing.T) {
	d, conn, cfg := newTestDispatcherWithConfig(t)
	do(d, conn, "SET", "k", "v")

	reply := do(d, conn, "BGSAVE")
	require.Equal(t, resp.SimpleString, reply.Type)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.DataDir, cfg.SnapshotFile))
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestBgRewriteAOFWithoutAOFEnabledErrors(t *testing.T) {
	d, conn, _ := newTestDispatcherWithConfig(t)
	reply := do(d, conn, "BGREWRITEAOF")
	require.Equal(t, resp.Error, reply.Type)
}

func TestBgRewriteAOFReplaysMinimalCommands(t *testing.T) {
	d, conn, cfg := newTestDispatcherWithConfig(t)
	path := filepath.Join(cfg.DataDir, "appendonly.aof")
	aof, err := persistence.Open(path, persistence.FsyncAlways)
	require.NoError(t, err)
	d.AOF = aof

	do(d, conn, "SET", "k", "v")
	do(d, conn, "SELECT", "1")
	do(d, conn, "SET", "other", "x")
	do(d, conn, "SELECT", "0")

	reply := do(d, conn, "BGREWRITEAOF")
	require.Equal(t, resp.SimpleString, reply.Type)
	require.NoError(t, aof.Close())

	ks2 := store.NewKeyspace(2, 0, store.NoEviction)
	tm2 := txn.NewManager()
	ps2 := pubsub.NewRegistry()
	m2 := metrics.New(prometheus.NewRegistry())
	d2 := New(ks2, tm2, ps2, m2, cfg)
	replayConn := d2.NewConn()

	n, err := persistence.Replay(path, func(args []string) error {
		d2.Dispatch(context.Background(), replayConn, args)
		return nil
	})
	require.NoError(t, err)
	require.Greater(t, n, 0)

	e, ok := ks2.DB(0).Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), e.Value.(*store.StringValue).Bytes)

	e, ok = ks2.DB(1).Get("other")
	require.True(t, ok)
	require.Equal(t, []byte("x"), e.Value.(*store.StringValue).Bytes)
}

func TestObjectEncodingAndMissingKey(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "intkey", "123")
	do(d, conn, "SET", "strkey", "hello")
	do(d, conn, "RPUSH", "listkey", "a")

	reply := do(d, conn, "OBJECT", "ENCODING", "intkey")
	require.Equal(t, "int", string(reply.Str))

	reply = do(d, conn, "OBJECT", "ENCODING", "strkey")
	require.Equal(t, "embstr", string(reply.Str))

	reply = do(d, conn, "OBJECT", "ENCODING", "listkey")
	require.Equal(t, "linkedlist", string(reply.Str))

	reply = do(d, conn, "OBJECT", "ENCODING", "missing")
	require.Equal(t, resp.Error, reply.Type)

	reply = do(d, conn, "OBJECT", "REFCOUNT", "strkey")
	require.Equal(t, int64(1), reply.Int)
}

func TestDumpRestoreRoundTrip(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "k", "hello")

	dump := do(d, conn, "DUMP", "k")
	require.Equal(t, resp.Bulk, dump.Type)
	require.False(t, dump.Null)

	do(d, conn, "DEL", "k")

	reply := do(d, conn, "RESTORE", "k", "0", string(dump.Str))
	require.Equal(t, resp.NewSimpleString("OK"), reply)

	reply = do(d, conn, "GET", "k")
	require.Equal(t, []byte("hello"), reply.Str)
}

func TestRestoreRefusesExistingKeyWithoutReplace(t *testing.T) {
	d, conn := newTestDispatcher()
	do(d, conn, "SET", "k", "hello")
	dump := do(d, conn, "DUMP", "k")

	reply := do(d, conn, "RESTORE", "k", "0", string(dump.Str))
	require.Equal(t, resp.Error, reply.Type)
	require.Contains(t, string(reply.Str), "BUSYKEY")

	reply = do(d, conn, "RESTORE", "k", "0", string(dump.Str), "REPLACE")
	require.Equal(t, resp.NewSimpleString("OK"), reply)
}

func TestRestoreRejectsCorruptPayload(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "RESTORE", "k", "0", "not-a-real-payload")
	require.Equal(t, resp.Error, reply.Type)
}

func TestDumpMissingKeyReturnsNullBulk(t *testing.T) {
	d, conn := newTestDispatcher()
	reply := do(d, conn, "DUMP", "nope")
	require.True(t, reply.Null)
}
