package persistence

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc64"

	"github.com/gofast-project/gofastd/internal/store"
)

// DumpValue serializes a single value (plus its expiry) using the same
// per-key record format a snapshot writes, with a trailing CRC64
// footer so RestoreValue can reject a corrupted or foreign payload
// before it ever reaches the keyspace. This backs the DUMP/RESTORE
// command pair the way the snapshot's own record format backs SAVE.
func DumpValue(value store.Value, expiresAt int64) ([]byte, error) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := writeEntry(bw, "", &store.Entry{Value: value, ExpiresAt: expiresAt}); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	sum := crc64.Checksum(buf.Bytes(), crcTable)
	var sumBuf [8]byte
	binary.BigEndian.PutUint64(sumBuf[:], sum)
	return append(buf.Bytes(), sumBuf[:]...), nil
}

// RestoreValue parses a payload produced by DumpValue, returning the
// value and the expiry it was dumped with.
func RestoreValue(payload []byte) (value store.Value, expiresAt int64, err error) {
	if len(payload) < 8 {
		return nil, 0, fmt.Errorf("restore: payload too short to be valid")
	}
	body, sumBytes := payload[:len(payload)-8], payload[len(payload)-8:]
	want := binary.BigEndian.Uint64(sumBytes)
	got := crc64.Checksum(body, crcTable)
	if want != got {
		return nil, 0, fmt.Errorf("restore: checksum mismatch (invalid or corrupt payload)")
	}

	r := bufio.NewReader(bytes.NewReader(body))
	_, value, expiresAt, err = readEntry(r)
	if err != nil {
		return nil, 0, err
	}
	return value, expiresAt, nil
}
