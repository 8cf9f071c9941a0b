package store

import "sync"

// List is a doubly-linked sequence of byte blobs with O(1) push/pop at
// both ends, plus the index/range/insert/remove/trim operations the
// full command set needs.
type List struct {
	mu     sync.RWMutex
	head   *listNode
	tail   *listNode
	length int
}

type listNode struct {
	value []byte
	prev  *listNode
	next  *listNode
}

func (*List) Type() ValueType { return TypeList }

func NewList() *List { return &List{} }

func (l *List) LeftPush(value []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	node := &listNode{value: value}
	if l.head == nil {
		l.head, l.tail = node, node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.length++
	return l.length
}

func (l *List) RightPush(value []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	node := &listNode{value: value}
	if l.tail == nil {
		l.head, l.tail = node, node
	} else {
		l.tail.next = node
		node.prev = l.tail
		l.tail = node
	}
	l.length++
	return l.length
}

func (l *List) LeftPop() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.head == nil {
		return nil, false
	}
	v := l.head.value
	l.head = l.head.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.length--
	return v, true
}

func (l *List) RightPop() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tail == nil {
		return nil, false
	}
	v := l.tail.value
	l.tail = l.tail.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.length--
	return v, true
}

func (l *List) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.length
}

func (l *List) nodeAt(index int) *listNode {
	if index < 0 || index >= l.length {
		return nil
	}
	cur := l.head
	for range index {
		cur = cur.next
	}
	return cur
}

// normIndex maps a possibly-negative Redis-style index to an absolute
// one, or reports it out of range.
func (l *List) normIndex(index int) (int, bool) {
	if index < 0 {
		index += l.length
	}
	if index < 0 || index >= l.length {
		return 0, false
	}
	return index, true
}

func (l *List) Index(index int) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.normIndex(index)
	if !ok {
		return nil, false
	}
	n := l.nodeAt(idx)
	if n == nil {
		return nil, false
	}
	return n.value, true
}

func (l *List) Set(index int, value []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.normIndex(index)
	if !ok {
		return false
	}
	n := l.nodeAt(idx)
	if n == nil {
		return false
	}
	n.value = value
	return true
}

// Range returns the inclusive [start,end] slice, supporting negative
// indices per the protocol's LRANGE semantics.
func (l *List) Range(start, end int) [][]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if start < 0 {
		start += l.length
	}
	if end < 0 {
		end += l.length
	}
	if start < 0 {
		start = 0
	}
	if end >= l.length {
		end = l.length - 1
	}
	if start > end || l.length == 0 {
		return [][]byte{}
	}
	result := make([][]byte, 0, end-start+1)
	cur := l.head
	for i := 0; i < start; i++ {
		cur = cur.next
	}
	for i := start; i <= end && cur != nil; i++ {
		result = append(result, cur.value)
		cur = cur.next
	}
	return result
}

// Trim keeps only the inclusive [start,end] range, discarding the rest.
func (l *List) Trim(start, end int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if start < 0 {
		start += l.length
	}
	if end < 0 {
		end += l.length
	}
	if start < 0 {
		start = 0
	}
	if end >= l.length {
		end = l.length - 1
	}
	if start > end || l.length == 0 {
		l.head, l.tail, l.length = nil, nil, 0
		return
	}
	cur := l.head
	for i := 0; i < start; i++ {
		cur = cur.next
	}
	newHead := cur
	var newTail *listNode
	count := 0
	for i := start; i <= end && cur != nil; i++ {
		newTail = cur
		cur = cur.next
		count++
	}
	newHead.prev = nil
	newTail.next = nil
	l.head, l.tail, l.length = newHead, newTail, count
}

// RemoveMatching removes up to count occurrences equal to value
// (count==0 removes all, count>0 scans head-to-tail, count<0 scans
// tail-to-head) and returns the number removed.
func (l *List) RemoveMatching(value []byte, count int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	eq := func(a []byte) bool {
		if len(a) != len(value) {
			return false
		}
		for i := range a {
			if a[i] != value[i] {
				return false
			}
		}
		return true
	}
	remove := func(n *listNode) {
		if n.prev != nil {
			n.prev.next = n.next
		} else {
			l.head = n.next
		}
		if n.next != nil {
			n.next.prev = n.prev
		} else {
			l.tail = n.prev
		}
		l.length--
		removed++
	}
	if count >= 0 {
		limit := count
		cur := l.head
		for cur != nil {
			next := cur.next
			if eq(cur.value) && (limit == 0 || removed < limit) {
				remove(cur)
				if limit != 0 && removed >= limit {
					break
				}
			}
			cur = next
		}
	} else {
		limit := -count
		cur := l.tail
		for cur != nil {
			prev := cur.prev
			if eq(cur.value) && removed < limit {
				remove(cur)
				if removed >= limit {
					break
				}
			}
			cur = prev
		}
	}
	return removed
}

// InsertBefore/InsertAfter insert value relative to the first node
// equal to pivot, returning the new length or -1 if pivot is absent.
func (l *List) InsertBefore(pivot, value []byte) int { return l.insert(pivot, value, true) }
func (l *List) InsertAfter(pivot, value []byte) int  { return l.insert(pivot, value, false) }

func (l *List) insert(pivot, value []byte, before bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	eq := func(a []byte) bool {
		if len(a) != len(pivot) {
			return false
		}
		for i := range a {
			if a[i] != pivot[i] {
				return false
			}
		}
		return true
	}
	cur := l.head
	for cur != nil {
		if eq(cur.value) {
			n := &listNode{value: value}
			if before {
				n.prev = cur.prev
				n.next = cur
				if cur.prev != nil {
					cur.prev.next = n
				} else {
					l.head = n
				}
				cur.prev = n
			} else {
				n.next = cur.next
				n.prev = cur
				if cur.next != nil {
					cur.next.prev = n
				} else {
					l.tail = n
				}
				cur.next = n
			}
			l.length++
			return l.length
		}
		cur = cur.next
	}
	return -1
}
