package blocking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gofast-project/gofastd/internal/store"
)

func popLeft(db *store.Database, key string) ([]byte, bool) {
	e, ok := db.Get(key)
	if !ok {
		return nil, false
	}
	l, ok := e.Value.(*store.List)
	if !ok {
		return nil, false
	}
	v, popped := l.LeftPop()
	if popped {
		db.Touch(key)
	}
	return v, popped
}

func TestWaitForAnyReturnsImmediatelyWhenReady(t *testing.T) {
	db := store.NewDatabase()
	l := store.NewList()
	l.RightPush([]byte("value"))
	db.Set("key", l, 0)

	res, err := WaitForAny(context.Background(), db, []string{"key"}, time.Second, popLeft)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "key", res.Key)
	require.Equal(t, []byte("value"), res.Value)
}

func TestWaitForAnyTimesOut(t *testing.T) {
	db := store.NewDatabase()
	res, err := WaitForAny(context.Background(), db, []string{"missing"}, 20*time.Millisecond, popLeft)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestWaitForAnyWakesOnPush(t *testing.T) {
	db := store.NewDatabase()
	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)

	go func() {
		res, err := WaitForAny(context.Background(), db, []string{"key"}, 0, popLeft)
		resultCh <- res
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	l := store.NewList()
	l.RightPush([]byte("pushed"))
	db.Set("key", l, 0)

	select {
	case res := <-resultCh:
		require.NoError(t, <-errCh)
		require.Equal(t, "key", res.Key)
		require.Equal(t, []byte("pushed"), res.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForAny did not wake up after push")
	}
}

func TestWaitForAnyCancelledByContext(t *testing.T) {
	db := store.NewDatabase()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := WaitForAny(ctx, db, []string{"missing"}, 0, popLeft)
	require.Error(t, err)
	require.Nil(t, res)
}
