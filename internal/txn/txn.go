// Package txn implements MULTI/EXEC/DISCARD/WATCH/UNWATCH using a
// dirty-flag scheme: writes mark every watcher of the key dirty at
// write time, so EXEC's abort check is an O(1) flag read rather than a
// per-key version re-comparison.
package txn

import "sync"

// QueuedCommand is one command buffered between MULTI and EXEC.
type QueuedCommand struct {
	Name string
	Args []string
}

// State is a connection's transaction state machine.
type State int

const (
	None State = iota
	Started
)

// watchKey identifies a watched key within a specific database: WATCH
// semantics are per (db, key), so a write to the same key name in a
// different SELECTed database must never dirty a watch it never
// touched.
type watchKey struct {
	db  int
	key string
}

// Transaction holds one connection's MULTI/WATCH bookkeeping.
type Transaction struct {
	State         State
	Queue         []QueuedCommand
	WatchedKeys   map[watchKey]struct{}
	Dirty         bool
	HadQueueError bool // a queued command failed arity/lookup; EXEC must abort
}

func NewTransaction() *Transaction {
	return &Transaction{WatchedKeys: make(map[watchKey]struct{})}
}

func (t *Transaction) Reset() {
	t.State = None
	t.Queue = t.Queue[:0]
	t.HadQueueError = false
}

func (t *Transaction) ClearWatches() {
	t.WatchedKeys = make(map[watchKey]struct{})
	t.Dirty = false
}

func (t *Transaction) MarkDirty() { t.Dirty = true }

func (t *Transaction) IsWatching(db int, key string) bool {
	_, ok := t.WatchedKeys[watchKey{db, key}]
	return ok
}

func (t *Transaction) Enqueue(name string, args []string) {
	t.Queue = append(t.Queue, QueuedCommand{Name: name, Args: args})
}

// Manager tracks every connection's Transaction plus the reverse index
// from watched key to connection id, so a write only has to touch the
// (usually small) set of connections watching that specific key.
type Manager struct {
	mu           sync.RWMutex
	transactions map[int64]*Transaction
	keyWatchers  map[watchKey]map[int64]struct{}
}

func NewManager() *Manager {
	return &Manager{
		transactions: make(map[int64]*Transaction),
		keyWatchers:  make(map[watchKey]map[int64]struct{}),
	}
}

// Get returns connID's transaction, creating one on first use.
func (m *Manager) Get(connID int64) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.transactions[connID]; ok {
		return tx
	}
	tx := NewTransaction()
	m.transactions[connID] = tx
	return tx
}

// RemoveConn drops a closed connection's transaction and its watches.
func (m *Manager) RemoveConn(connID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[connID]
	if !ok {
		return
	}
	for wk := range tx.WatchedKeys {
		m.unwatchLocked(connID, wk)
	}
	delete(m.transactions, connID)
}

func (m *Manager) Watch(connID int64, db int, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[connID]
	if !ok {
		return
	}
	wk := watchKey{db, key}
	tx.WatchedKeys[wk] = struct{}{}
	set, ok := m.keyWatchers[wk]
	if !ok {
		set = make(map[int64]struct{})
		m.keyWatchers[wk] = set
	}
	set[connID] = struct{}{}
}

func (m *Manager) UnwatchAll(connID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[connID]
	if !ok {
		return
	}
	for wk := range tx.WatchedKeys {
		m.unwatchLocked(connID, wk)
	}
	tx.ClearWatches()
}

func (m *Manager) unwatchLocked(connID int64, wk watchKey) {
	if set, ok := m.keyWatchers[wk]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(m.keyWatchers, wk)
		}
	}
}

// TouchKey marks every connection watching (db, key) as dirty; called
// by the dispatcher immediately after any write to that key.
func (m *Manager) TouchKey(db int, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for connID := range m.keyWatchers[watchKey{db, key}] {
		if tx, ok := m.transactions[connID]; ok {
			tx.MarkDirty()
		}
	}
}

func (m *Manager) TouchKeys(db int, keys []string) {
	if len(keys) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		for connID := range m.keyWatchers[watchKey{db, key}] {
			if tx, ok := m.transactions[connID]; ok {
				tx.MarkDirty()
			}
		}
	}
}

// MarkAllDirty marks every open transaction dirty, used after FLUSHALL,
// which invalidates every database at once rather than a specific key
// list.
func (m *Manager) MarkAllDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		tx.MarkDirty()
	}
}

// MarkDirtyForDB marks dirty only the watches on keys within db, used
// after FLUSHDB so a watch held in a different SELECTed database is
// left untouched.
func (m *Manager) MarkDirtyForDB(db int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for wk, conns := range m.keyWatchers {
		if wk.db != db {
			continue
		}
		for connID := range conns {
			if tx, ok := m.transactions[connID]; ok {
				tx.MarkDirty()
			}
		}
	}
}

// IsTransactionCommand reports whether cmd is MULTI/EXEC/DISCARD/
// WATCH/UNWATCH, which the dispatcher intercepts before the queue.
func IsTransactionCommand(cmd string) bool {
	switch cmd {
	case "MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH":
		return true
	}
	return false
}

// WriteKeys returns the keys cmd will write to, used so WATCH/TouchKey
// only has to consider commands that can actually invalidate a watch.
// It returns nil for every command it does not list, including
// FLUSHALL/FLUSHDB, which the dispatcher handles by marking
// transactions dirty directly rather than through this key list.
func WriteKeys(cmd string, args []string) []string {
	if len(args) == 0 {
		return nil
	}
	switch cmd {
	case "SET", "SETNX", "SETEX", "PSETEX", "GETSET", "GETDEL", "INCR", "INCRBY",
		"INCRBYFLOAT", "DECR", "DECRBY", "APPEND", "SETRANGE", "SETBIT", "GETEX":
		return []string{args[0]}
	case "MSET", "MSETNX":
		keys := make([]string, 0, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			keys = append(keys, args[i])
		}
		return keys
	case "LPUSH", "RPUSH", "LPUSHX", "RPUSHX", "LPOP", "RPOP", "LSET", "LREM", "LTRIM", "LINSERT":
		return []string{args[0]}
	case "RPOPLPUSH", "LMOVE":
		if len(args) >= 2 {
			return []string{args[0], args[1]}
		}
		return []string{args[0]}
	case "HSET", "HMSET", "HSETNX", "HDEL", "HINCRBY", "HINCRBYFLOAT":
		return []string{args[0]}
	case "SADD", "SREM", "SPOP", "SMOVE":
		return []string{args[0]}
	case "SUNIONSTORE", "SINTERSTORE", "SDIFFSTORE":
		return []string{args[0]}
	case "ZADD", "ZINCRBY", "ZREM", "ZREMRANGEBYSCORE", "ZREMRANGEBYRANK":
		return []string{args[0]}
	case "XADD", "XDEL", "XTRIM":
		return []string{args[0]}
	case "PFADD":
		return []string{args[0]}
	case "PFMERGE":
		return []string{args[0]}
	case "DEL", "UNLINK":
		return args
	case "RENAME", "RENAMENX":
		if len(args) >= 2 {
			return []string{args[0], args[1]}
		}
		return []string{args[0]}
	case "EXPIRE", "EXPIREAT", "PEXPIRE", "PEXPIREAT", "PERSIST":
		return []string{args[0]}
	case "FLUSHALL", "FLUSHDB":
		return nil
	}
	return nil
}
