// Package blocking implements the wait/wake loop behind BLPOP and
// BRPOP: block the calling connection's goroutine until a list
// key it cares about is written, or until a timeout elapses.
package blocking

import (
	"context"
	"reflect"
	"time"

	"github.com/gofast-project/gofastd/internal/store"
)

// PopFunc attempts a non-blocking pop against one key, returning the
// popped value and true on success.
type PopFunc func(db *store.Database, key string) ([]byte, bool)

// Result is one successful blocking pop.
type Result struct {
	Key   string
	Value []byte
}

// WaitForAny tries popFn against each key in order, and if all are
// empty, blocks on all of their wait channels until one fires, the
// context is cancelled, or timeout elapses (timeout<=0 means forever,
// matching BLPOP's "0" argument).
func WaitForAny(ctx context.Context, db *store.Database, keys []string, timeout time.Duration, popFn PopFunc) (*Result, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		for _, key := range keys {
			if v, ok := popFn(db, key); ok {
				return &Result{Key: key, Value: v}, nil
			}
		}

		waitChans := make([]<-chan struct{}, len(keys))
		for i, key := range keys {
			waitChans[i] = db.WaitChan(key)
		}

		switch waitAny(ctx, waitChans, timeoutCh) {
		case waitCancelled:
			return nil, ctx.Err()
		case waitTimedOut:
			return nil, nil
		case waitWoken:
			// loop around and retry pops; the wake might already
			// have been consumed by another blocked client.
		}
	}
}

type waitOutcome int

const (
	waitCancelled waitOutcome = iota
	waitTimedOut
	waitWoken
)

// waitAny blocks until ctx is done, timeoutCh fires, or any of
// waitChans closes, using reflect.Select since BLPOP/BRPOP name a
// caller-supplied, variable-length key list.
func waitAny(ctx context.Context, waitChans []<-chan struct{}, timeoutCh <-chan time.Time) waitOutcome {
	cases := make([]reflect.SelectCase, 0, len(waitChans)+2)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timeoutCh)})
	for _, ch := range waitChans {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
	}
	chosen, _, _ := reflect.Select(cases)
	switch chosen {
	case 0:
		return waitCancelled
	case 1:
		return waitTimedOut
	default:
		return waitWoken
	}
}
