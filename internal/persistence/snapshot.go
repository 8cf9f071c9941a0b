package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"io"
	"math"
	"os"

	"github.com/golang/snappy"

	"github.com/gofast-project/gofastd/internal/store"
)

// Snapshot format: a small RDB-alike. "GFSNAP01" magic, then one block
// per non-empty database (0xFE, varint db index, varint key count, then
// one record per live key), a 0xFF end marker, then an 8-byte CRC64 (Jones polynomial)
// over everything before it.
var magic = [8]byte{'G', 'F', 'S', 'N', 'A', 'P', '0', '1'}

// jonesPoly is the CRC-64/Jones polynomial, the same checksum Redis's
// own RDB format uses for its trailing footer.
const jonesPoly = 0xad93d23594c935a9

var crcTable = crc64.MakeTable(jonesPoly)

const (
	recKeyFrame = 0xFE
	recEnd      = 0xFF
)

const snappyThreshold = 64 // only worth compressing strings above this size

type typeByte byte

const (
	tString typeByte = iota
	tList
	tHash
	tSet
	tZSet
	tStream
	tHLL
)

// Save writes a full snapshot of every database in ks to path,
// atomically via a temp-file-then-rename so a crash mid-write never
// corrupts the previous snapshot (SAVE/BGSAVE share this, BGSAVE just
// calls it from a spawned goroutine/forked-in-spirit path).
func Save(path string, ks *store.Keyspace) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	h := crc64.New(crcTable)
	w := io.MultiWriter(f, h)
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return closeAndErr(f, err)
	}
	for dbIdx := 0; dbIdx < ks.NumDBs(); dbIdx++ {
		entries := ks.DB(dbIdx).Snapshot()
		if len(entries) == 0 {
			continue
		}
		bw.WriteByte(recKeyFrame)
		writeUvarint(bw, uint64(dbIdx))
		writeUvarint(bw, uint64(len(entries)))
		for key, e := range entries {
			if err := writeEntry(bw, key, e); err != nil {
				return closeAndErr(f, err)
			}
		}
	}
	bw.WriteByte(recEnd)
	if err := bw.Flush(); err != nil {
		return closeAndErr(f, err)
	}

	sum := h.Sum64()
	var sumBuf [8]byte
	binary.BigEndian.PutUint64(sumBuf[:], sum)
	if _, err := f.Write(sumBuf[:]); err != nil {
		return closeAndErr(f, err)
	}
	if err := f.Sync(); err != nil {
		return closeAndErr(f, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func closeAndErr(f *os.File, err error) error {
	f.Close()
	return err
}

func writeEntry(w *bufio.Writer, key string, e *store.Entry) error {
	writeUvarint(w, uint64(len(key)))
	w.WriteString(key)

	var expiresAt uint64
	if e.ExpiresAt > 0 {
		expiresAt = uint64(e.ExpiresAt)
	}
	writeUvarint(w, expiresAt)

	switch v := e.Value.(type) {
	case *store.StringValue:
		w.WriteByte(byte(tString))
		writeBytes(w, v.Bytes)
	case *store.List:
		w.WriteByte(byte(tList))
		items := v.Range(0, -1)
		writeUvarint(w, uint64(len(items)))
		for _, it := range items {
			writeBytes(w, it)
		}
	case *store.Hash:
		w.WriteByte(byte(tHash))
		all := v.GetAll()
		writeUvarint(w, uint64(len(all)))
		for field, val := range all {
			writeBytes(w, []byte(field))
			writeBytes(w, val)
		}
	case *store.Set:
		w.WriteByte(byte(tSet))
		members := v.Members()
		writeUvarint(w, uint64(len(members)))
		for _, m := range members {
			writeBytes(w, []byte(m))
		}
	case *store.ZSet:
		w.WriteByte(byte(tZSet))
		items := v.RangeByRank(0, -1, false)
		writeUvarint(w, uint64(len(items)))
		for _, it := range items {
			writeBytes(w, []byte(it.Member))
			var scoreBuf [8]byte
			binary.BigEndian.PutUint64(scoreBuf[:], math.Float64bits(it.Score))
			w.Write(scoreBuf[:])
		}
	case *store.Stream:
		w.WriteByte(byte(tStream))
		entries := v.Range(store.StreamID{}, store.StreamID{Ms: 1<<62, Seq: 1 << 62}, 0)
		writeUvarint(w, uint64(len(entries)))
		for _, se := range entries {
			writeUvarint(w, uint64(se.ID.Ms))
			writeUvarint(w, uint64(se.ID.Seq))
			writeUvarint(w, uint64(len(se.Fields)))
			for _, kv := range se.Fields {
				writeBytes(w, kv[0])
				writeBytes(w, kv[1])
			}
		}
	case *store.HyperLogLog:
		w.WriteByte(byte(tHLL))
		writeBytes(w, v.Bytes())
	default:
		return fmt.Errorf("snapshot: unsupported value type %T", v)
	}
	return nil
}

// writeBytes emits a length-prefixed blob, snappy-compressing it when
// it is large enough that compression overhead is worth paying.
func writeBytes(w *bufio.Writer, b []byte) {
	if len(b) > snappyThreshold {
		compressed := snappy.Encode(nil, b)
		if len(compressed) < len(b) {
			w.WriteByte(1)
			writeUvarint(w, uint64(len(compressed)))
			w.Write(compressed)
			return
		}
	}
	w.WriteByte(0)
	writeUvarint(w, uint64(len(b)))
	w.Write(b)
}

func writeUvarint(w *bufio.Writer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}
