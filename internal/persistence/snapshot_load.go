package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"

	"github.com/gofast-project/gofastd/internal/store"
)

// Load restores every database in ks from the snapshot at path,
// validating the trailing CRC64 before touching any data so a
// truncated or corrupted file never partially clobbers the keyspace.
// A missing file is not an error: a fresh server simply starts empty.
func Load(path string, ks *store.Keyspace) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(raw) < 8+8 {
		return fmt.Errorf("snapshot: %s too short to be valid", path)
	}
	body, sumBytes := raw[:len(raw)-8], raw[len(raw)-8:]
	want := binary.BigEndian.Uint64(sumBytes)
	got := crc64.Checksum(body, crcTable)
	if want != got {
		return fmt.Errorf("snapshot: %s checksum mismatch (corrupt file)", path)
	}

	r := bufio.NewReader(bytes.NewReader(body))
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return err
	}
	if gotMagic != magic {
		return fmt.Errorf("snapshot: %s has unrecognized header", path)
	}

	for {
		marker, err := r.ReadByte()
		if err != nil {
			return err
		}
		if marker == recEnd {
			break
		}
		if marker != recKeyFrame {
			return fmt.Errorf("snapshot: unexpected record marker 0x%x", marker)
		}
		dbIdx, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		count, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		if int(dbIdx) >= ks.NumDBs() {
			return fmt.Errorf("snapshot: database index %d out of range", dbIdx)
		}
		entries := make(map[string]store.ValueWithExpiry, count)
		for i := uint64(0); i < count; i++ {
			key, value, expiresAt, err := readEntry(r)
			if err != nil {
				return err
			}
			entries[key] = store.ValueWithExpiry{Value: value, ExpiresAt: expiresAt}
		}
		ks.DB(int(dbIdx)).Load(entries)
	}
	return nil
}

func readEntry(r *bufio.Reader) (key string, value store.Value, expiresAt int64, err error) {
	keyLen, err := binary.ReadUvarint(r)
	if err != nil {
		return "", nil, 0, err
	}
	keyBuf := make([]byte, keyLen)
	if _, err = io.ReadFull(r, keyBuf); err != nil {
		return "", nil, 0, err
	}
	key = string(keyBuf)

	exp, err := binary.ReadUvarint(r)
	if err != nil {
		return "", nil, 0, err
	}
	expiresAt = int64(exp)

	tb, err := r.ReadByte()
	if err != nil {
		return "", nil, 0, err
	}

	switch typeByte(tb) {
	case tString:
		b, err := readBytes(r)
		if err != nil {
			return "", nil, 0, err
		}
		value = store.NewString(b)
	case tList:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return "", nil, 0, err
		}
		list := store.NewList()
		for i := uint64(0); i < n; i++ {
			b, err := readBytes(r)
			if err != nil {
				return "", nil, 0, err
			}
			list.RightPush(b)
		}
		value = list
	case tHash:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return "", nil, 0, err
		}
		h := store.NewHash()
		for i := uint64(0); i < n; i++ {
			f, err := readBytes(r)
			if err != nil {
				return "", nil, 0, err
			}
			v, err := readBytes(r)
			if err != nil {
				return "", nil, 0, err
			}
			h.Set(string(f), v)
		}
		value = h
	case tSet:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return "", nil, 0, err
		}
		s := store.NewSet()
		for i := uint64(0); i < n; i++ {
			m, err := readBytes(r)
			if err != nil {
				return "", nil, 0, err
			}
			s.Add(string(m))
		}
		value = s
	case tZSet:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return "", nil, 0, err
		}
		z := store.NewZSet()
		for i := uint64(0); i < n; i++ {
			m, err := readBytes(r)
			if err != nil {
				return "", nil, 0, err
			}
			var scoreBuf [8]byte
			if _, err := io.ReadFull(r, scoreBuf[:]); err != nil {
				return "", nil, 0, err
			}
			score := math.Float64frombits(binary.BigEndian.Uint64(scoreBuf[:]))
			z.Add(string(m), score)
		}
		value = z
	case tStream:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return "", nil, 0, err
		}
		st := store.NewStream()
		for i := uint64(0); i < n; i++ {
			ms, err := binary.ReadUvarint(r)
			if err != nil {
				return "", nil, 0, err
			}
			seq, err := binary.ReadUvarint(r)
			if err != nil {
				return "", nil, 0, err
			}
			fieldCount, err := binary.ReadUvarint(r)
			if err != nil {
				return "", nil, 0, err
			}
			fields := make([][2][]byte, fieldCount)
			for j := uint64(0); j < fieldCount; j++ {
				k, err := readBytes(r)
				if err != nil {
					return "", nil, 0, err
				}
				v, err := readBytes(r)
				if err != nil {
					return "", nil, 0, err
				}
				fields[j] = [2][]byte{k, v}
			}
			st.Append(store.StreamID{Ms: int64(ms), Seq: int64(seq)}, fields)
		}
		value = st
	case tHLL:
		b, err := readBytes(r)
		if err != nil {
			return "", nil, 0, err
		}
		value = store.HyperLogLogFromBytes(b)
	default:
		return "", nil, 0, fmt.Errorf("snapshot: unknown value type byte 0x%x", tb)
	}
	return key, value, expiresAt, nil
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if flag == 1 {
		return snappy.Decode(nil, buf)
	}
	return buf, nil
}
