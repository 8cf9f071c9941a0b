package dispatch

import (
	"github.com/gofast-project/gofastd/internal/pubsub"
	"github.com/gofast-project/gofastd/internal/txn"
)

// ConnState is the per-connection state a client session needs:
// selected database, auth flag, subscription set, transaction
// queue/watch set, client name, and idle bookkeeping.
type ConnState struct {
	ID            int64
	DBIndex       int
	Authenticated bool
	Name          string
	Closing       bool

	Tx *txn.Transaction

	Sub         *pubsub.Subscriber
	Channels    map[string]bool
	Patterns    map[string]bool
}

func NewConnState(id int64, authenticated bool) *ConnState {
	return &ConnState{
		ID:            id,
		DBIndex:       0,
		Authenticated: authenticated,
		Channels:      make(map[string]bool),
		Patterns:      make(map[string]bool),
	}
}

// InSubscribeMode reports whether the connection currently holds any
// channel or pattern subscription, which restricts the
// command set it may issue.
func (c *ConnState) InSubscribeMode() bool {
	return len(c.Channels) > 0 || len(c.Patterns) > 0
}
