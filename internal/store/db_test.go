package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatabaseSetGetDelete(t *testing.T) {
	db := NewDatabase()
	db.Set("foo", NewString([]byte("bar")), 0)

	e, ok := db.Get("foo")
	require.True(t, ok)
	require.Equal(t, []byte("bar"), e.Value.(*StringValue).Bytes)

	require.True(t, db.Delete("foo"))
	_, ok = db.Get("foo")
	require.False(t, ok)
	require.False(t, db.Delete("foo"))
}

func TestDatabaseExpiry(t *testing.T) {
	db := NewDatabase()
	past := time.Now().Add(-time.Second).UnixMilli()
	db.Set("foo", NewString([]byte("bar")), past)

	_, ok := db.Get("foo")
	require.False(t, ok, "lazily expired key should be gone")
	require.Equal(t, 0, db.Len())
}

func TestDatabaseTTL(t *testing.T) {
	db := NewDatabase()
	db.Set("nottl", NewString([]byte("x")), 0)
	require.EqualValues(t, -1, db.TTL("nottl"))
	require.EqualValues(t, -2, db.TTL("missing"))

	future := time.Now().Add(10 * time.Second).UnixMilli()
	db.Set("withttl", NewString([]byte("x")), future)
	ttl := db.TTL("withttl")
	require.Greater(t, ttl, int64(0))
	require.LessOrEqual(t, ttl, int64(10000))
}

func TestDatabaseExpireCommand(t *testing.T) {
	db := NewDatabase()
	require.False(t, db.Expire("missing", 0))

	db.Set("foo", NewString([]byte("bar")), 0)
	future := time.Now().Add(time.Minute).UnixMilli()
	require.True(t, db.Expire("foo", future))
	require.Greater(t, db.TTL("foo"), int64(0))
}

func TestDatabaseVersionBumpsOnWrite(t *testing.T) {
	db := NewDatabase()
	v0 := db.Version("foo")
	db.Set("foo", NewString([]byte("1")), 0)
	v1 := db.Version("foo")
	require.Greater(t, v1, v0)

	db.Touch("foo")
	v2 := db.Version("foo")
	require.Greater(t, v2, v1)

	db.Delete("foo")
	v3 := db.Version("foo")
	require.Greater(t, v3, v2)
}

func TestDatabaseRename(t *testing.T) {
	db := NewDatabase()
	require.False(t, db.Rename("missing", "dst"))

	db.Set("src", NewString([]byte("val")), 0)
	require.True(t, db.Rename("src", "dst"))
	require.False(t, db.Exists("src"))
	e, ok := db.Get("dst")
	require.True(t, ok)
	require.Equal(t, []byte("val"), e.Value.(*StringValue).Bytes)
}

func TestDatabaseKeysPattern(t *testing.T) {
	db := NewDatabase()
	db.Set("user:1", NewString([]byte("a")), 0)
	db.Set("user:2", NewString([]byte("b")), 0)
	db.Set("order:1", NewString([]byte("c")), 0)

	keys := db.Keys("user:*")
	require.ElementsMatch(t, []string{"user:1", "user:2"}, keys)

	all := db.Keys("*")
	require.Len(t, all, 3)
}

func TestDatabaseFlush(t *testing.T) {
	db := NewDatabase()
	db.Set("a", NewString([]byte("1")), 0)
	db.Set("b", NewString([]byte("2")), 0)
	require.Equal(t, 2, db.Flush())
	require.Equal(t, 0, db.Len())
}

func TestDatabaseChangesCounter(t *testing.T) {
	db := NewDatabase()
	require.EqualValues(t, 0, db.Changes())
	db.Set("a", NewString([]byte("1")), 0)
	db.Delete("a")
	require.EqualValues(t, 2, db.Changes())
	db.ResetChanges()
	require.EqualValues(t, 0, db.Changes())
}

func TestDatabaseWaitChanNotify(t *testing.T) {
	db := NewDatabase()
	ch := db.WaitChan("key")
	select {
	case <-ch:
		t.Fatal("channel closed before notify")
	default:
	}
	db.Notify("key")
	select {
	case <-ch:
	default:
		t.Fatal("channel was not closed after notify")
	}
}

func TestDatabaseSnapshotExcludesExpired(t *testing.T) {
	db := NewDatabase()
	db.Set("live", NewString([]byte("1")), 0)
	db.Set("dead", NewString([]byte("2")), time.Now().Add(-time.Second).UnixMilli())

	snap := db.Snapshot()
	require.Contains(t, snap, "live")
	require.NotContains(t, snap, "dead")
}

func TestDatabaseLoad(t *testing.T) {
	db := NewDatabase()
	db.Load(map[string]ValueWithExpiry{
		"a": {Value: NewString([]byte("1")), ExpiresAt: 0},
	})
	require.Equal(t, 1, db.Len())
	e, ok := db.Get("a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), e.Value.(*StringValue).Bytes)
}
