// Package persistence implements the two durability mechanisms
// a durable append-only command log (AOF) alongside a binary
// point-in-time snapshot (akin to RDB).
package persistence

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofast-project/gofastd/internal/resp"
)

// FsyncPolicy controls when AOF writes are forced to stable storage.
type FsyncPolicy int

const (
	FsyncAlways FsyncPolicy = iota
	FsyncEverySec
	FsyncNever
)

func ParseFsyncPolicy(s string) FsyncPolicy {
	switch s {
	case "always":
		return FsyncAlways
	case "no":
		return FsyncNever
	default:
		return FsyncEverySec
	}
}

// AOF appends every write command as a RESP array to a file, with
// three fsync policies instead of syncing on every write.
type AOF struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer io.Writer
	policy FsyncPolicy

	dirty        bool
	everysecStop chan struct{}
}

// Open opens (creating if absent) the AOF file at path in append mode.
func Open(path string, policy FsyncPolicy) (*AOF, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("aof: open %s: %w", path, err)
	}
	a := &AOF{path: path, file: f, writer: f, policy: policy}
	if policy == FsyncEverySec {
		a.startEverySec()
	}
	return a, nil
}

func (a *AOF) startEverySec() {
	a.everysecStop = make(chan struct{})
	ticker := time.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.mu.Lock()
				if a.dirty {
					a.file.Sync()
					a.dirty = false
				}
				a.mu.Unlock()
			case <-a.everysecStop:
				return
			}
		}
	}()
}

// Append serializes args as a RESP command array and writes it,
// applying the configured fsync policy.
func (a *AOF) Append(args []string) error {
	strs := make([][]byte, len(args))
	for i, s := range args {
		strs[i] = []byte(s)
	}
	buf := resp.Encode(nil, resp.NewStringArray(strs))

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.writer.Write(buf); err != nil {
		return err
	}
	switch a.policy {
	case FsyncAlways:
		return a.file.Sync()
	case FsyncEverySec:
		a.dirty = true
	}
	return nil
}

// Close stops the background fsync goroutine (if any) and closes the file.
func (a *AOF) Close() error {
	if a.everysecStop != nil {
		close(a.everysecStop)
	}
	return a.file.Close()
}

// Replay reads every command from the start of the AOF file and invokes
// apply for each, stopping at EOF. An incomplete record at the end of
// the file is cut off the file rather than reported as an error. It is
// intended for server startup before normal traffic (and therefore
// before normal logging) begins.
func Replay(path string, apply func(args []string) error) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	total := 0
	var consumed int64
	var pending []byte
	chunk := make([]byte, 32*1024)
	for {
		v, n, decErr := resp.Decode(pending)
		if decErr == nil {
			pending = pending[n:]
			consumed += int64(n)
			args, argErr := resp.StringArgs(v)
			if argErr == nil {
				if err := apply(args); err != nil {
					return total, err
				}
				total++
			}
			continue
		}
		if decErr != resp.ErrNeedMore {
			return total, decErr
		}
		n, readErr := r.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}
	if len(pending) > 0 {
		if err := os.Truncate(path, consumed); err != nil {
			return total, err
		}
	}
	log.Printf("aof: replayed %d commands from %s", total, path)
	return total, nil
}

// RewriteFunc emits the minimal set of commands that reconstructs the
// current dataset (e.g. one SET per string key, one RPUSH per list).
type RewriteFunc func(emit func(args []string)) error

// Rewrite truncates the AOF and replaces its contents with the minimal
// command set dump produces, buffering any commands appended
// concurrently during the dump so they are not lost.
func (a *AOF) Rewrite(dump RewriteFunc) error {
	a.mu.Lock()
	var sideBuf bytes.Buffer
	a.writer = &sideBuf
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.writer = a.file
		a.mu.Unlock()
	}()

	if err := a.file.Truncate(0); err != nil {
		return fmt.Errorf("aof rewrite: truncate: %w", err)
	}
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("aof rewrite: seek: %w", err)
	}

	bw := bufio.NewWriter(a.file)
	emit := func(args []string) {
		strs := make([][]byte, len(args))
		for i, s := range args {
			strs[i] = []byte(s)
		}
		bw.Write(resp.Encode(nil, resp.NewStringArray(strs)))
	}
	if err := dump(emit); err != nil {
		return fmt.Errorf("aof rewrite: dump: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("aof rewrite: flush: %w", err)
	}

	a.mu.Lock()
	_, err := sideBuf.WriteTo(a.file)
	a.mu.Unlock()
	if err != nil {
		return fmt.Errorf("aof rewrite: append buffered commands: %w", err)
	}
	return a.file.Sync()
}
