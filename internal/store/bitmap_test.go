package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBitGetBit(t *testing.T) {
	var buf []byte
	buf, old := SetBit(buf, 7, 1)
	require.EqualValues(t, 0, old)
	require.Len(t, buf, 1)
	require.EqualValues(t, 1, GetBit(buf, 7))
	require.EqualValues(t, 0, GetBit(buf, 0))

	buf, old = SetBit(buf, 7, 0)
	require.EqualValues(t, 1, old)
	require.EqualValues(t, 0, GetBit(buf, 7))
}

func TestSetBitGrowsBuffer(t *testing.T) {
	var buf []byte
	buf, _ = SetBit(buf, 17, 1)
	require.Len(t, buf, 3)
	require.EqualValues(t, 1, GetBit(buf, 17))
}

func TestGetBitOutOfRange(t *testing.T) {
	require.EqualValues(t, 0, GetBit(nil, 100))
}

func TestBitCount(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x0F}
	require.EqualValues(t, 12, BitCount(buf, 0, -1))
	require.EqualValues(t, 8, BitCount(buf, 0, 0))
	require.EqualValues(t, 4, BitCount(buf, -1, -1))
}

func TestBitPos(t *testing.T) {
	buf := []byte{0x00, 0x0F}
	pos := BitPos(buf, 1, 0, -1, true)
	require.EqualValues(t, 12, pos)

	pos = BitPos(buf, 1, 0, 0, true)
	require.EqualValues(t, -1, pos)
}

func TestBitOp(t *testing.T) {
	a := []byte{0b1100}
	b := []byte{0b1010}

	and := BitOp("AND", [][]byte{a, b})
	require.Equal(t, []byte{0b1000}, and)

	or := BitOp("OR", [][]byte{a, b})
	require.Equal(t, []byte{0b1110}, or)

	xor := BitOp("XOR", [][]byte{a, b})
	require.Equal(t, []byte{0b0110}, xor)

	not := BitOp("NOT", [][]byte{a})
	require.Equal(t, []byte{^byte(0b1100)}, not)
}
