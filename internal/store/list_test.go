package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListPushPop(t *testing.T) {
	l := NewList()
	require.Equal(t, 1, l.LeftPush([]byte("b")))
	require.Equal(t, 2, l.LeftPush([]byte("a")))
	require.Equal(t, 3, l.RightPush([]byte("c")))
	require.Equal(t, 3, l.Length())

	v, ok := l.LeftPop()
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	v, ok = l.RightPop()
	require.True(t, ok)
	require.Equal(t, []byte("c"), v)

	require.Equal(t, 1, l.Length())
}

func TestListPopEmpty(t *testing.T) {
	l := NewList()
	_, ok := l.LeftPop()
	require.False(t, ok)
	_, ok = l.RightPop()
	require.False(t, ok)
}

func TestListIndexAndSet(t *testing.T) {
	l := NewList()
	l.RightPush([]byte("a"))
	l.RightPush([]byte("b"))
	l.RightPush([]byte("c"))

	v, ok := l.Index(1)
	require.True(t, ok)
	require.Equal(t, []byte("b"), v)

	v, ok = l.Index(-1)
	require.True(t, ok)
	require.Equal(t, []byte("c"), v)

	require.True(t, l.Set(1, []byte("bb")))
	v, _ = l.Index(1)
	require.Equal(t, []byte("bb"), v)

	require.False(t, l.Set(10, []byte("x")))
}

func TestListRange(t *testing.T) {
	l := NewList()
	for _, v := range []string{"a", "b", "c", "d"} {
		l.RightPush([]byte(v))
	}
	out := l.Range(0, -1)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}, out)

	out = l.Range(1, 2)
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, out)

	out = l.Range(5, 10)
	require.Empty(t, out)
}

func TestListTrim(t *testing.T) {
	l := NewList()
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		l.RightPush([]byte(v))
	}
	l.Trim(1, 3)
	require.Equal(t, 3, l.Length())
	out := l.Range(0, -1)
	require.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("d")}, out)
}

func TestListRemoveMatching(t *testing.T) {
	l := NewList()
	for _, v := range []string{"a", "b", "a", "c", "a"} {
		l.RightPush([]byte(v))
	}
	n := l.RemoveMatching([]byte("a"), 2)
	require.Equal(t, 2, n)
	require.Equal(t, 3, l.Length())
	out := l.Range(0, -1)
	require.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("a")}, out)
}

func TestListInsertBeforeAfter(t *testing.T) {
	l := NewList()
	l.RightPush([]byte("a"))
	l.RightPush([]byte("c"))

	n := l.InsertBefore([]byte("c"), []byte("b"))
	require.Equal(t, 3, n)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, l.Range(0, -1))

	n = l.InsertAfter([]byte("c"), []byte("d"))
	require.Equal(t, 4, n)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}, l.Range(0, -1))

	n = l.InsertBefore([]byte("missing"), []byte("x"))
	require.Equal(t, -1, n)
}
