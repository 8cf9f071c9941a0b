// Package server runs gofastd's TCP accept loop and per-connection RESP
// read/dispatch/write cycle, plus the background tick that drives
// active expiration, eviction, and autosave.
package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/dispatch"
	"github.com/gofast-project/gofastd/internal/metrics"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/resp"
	"github.com/gofast-project/gofastd/internal/store"
)

// Server owns the listener, the dispatcher, and the background tick
// that performs active expiration, maxmemory eviction, and autosave.
type Server struct {
	Config   *config.Config
	Keyspace *store.Keyspace
	Dispatch *dispatch.Dispatcher
	Metrics  *metrics.Metrics
	AOF      *persistence.AOF

	listener net.Listener
	running  bool
	wg       sync.WaitGroup

	stopTick chan struct{}
	chunks   *bytePool

	lastSaveChanges int64
	lastSaveAt      time.Time
}

func New(cfg *config.Config, ks *store.Keyspace, d *dispatch.Dispatcher, m *metrics.Metrics, aof *persistence.AOF) *Server {
	return &Server{
		Config:     cfg,
		Keyspace:   ks,
		Dispatch:   d,
		Metrics:    m,
		AOF:        aof,
		chunks:     newBytePool(4096),
		lastSaveAt: time.Now(),
	}
}

// Start begins listening and blocks, accepting connections until
// Stop is called or the listener errors.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.running = true
	s.stopTick = make(chan struct{})

	log.Printf("gofastd listening on %s", address)

	go s.tick()

	for s.running {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running {
				log.Printf("accept error: %v", err)
			}
			continue
		}
		if s.Metrics != nil {
			s.Metrics.ConnectedClients.Inc()
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
	return nil
}

// Stop closes the listener and the tick loop, then waits for every
// in-flight connection handler to finish.
func (s *Server) Stop() {
	s.running = false
	if s.listener != nil {
		s.listener.Close()
	}
	if s.stopTick != nil {
		close(s.stopTick)
	}
	s.wg.Wait()
}

func (s *Server) handleConnection(netConn net.Conn) {
	defer s.wg.Done()
	defer netConn.Close()
	if s.Metrics != nil {
		defer s.Metrics.ConnectedClients.Dec()
	}

	if tcpConn, ok := netConn.(*net.TCPConn); ok && s.Config.TCPKeepAlive {
		tcpConn.SetKeepAlive(true)
	}

	conn := s.Dispatch.NewConn()
	defer s.Dispatch.CloseConn(conn)

	reader := bufio.NewReader(netConn)
	writer := bufio.NewWriter(netConn)
	buf := make([]byte, 0, 4096)

	for {
		if s.Config.IdleTimeout > 0 {
			netConn.SetReadDeadline(time.Now().Add(s.Config.IdleTimeout))
		}

		value, err := s.readValue(reader, &buf)
		if err != nil {
			if _, ok := err.(*resp.ProtocolError); ok {
				writer.Write(resp.Encode(nil, resp.NewError("ERR Protocol error: "+err.Error())))
				writer.Flush()
			} else if err != io.EOF {
				log.Printf("read error: %v", err)
			}
			return
		}

		args, err := resp.StringArgs(value)
		if err != nil {
			writer.Write(resp.Encode(nil, resp.NewError("ERR Protocol error: "+err.Error())))
			writer.Flush()
			return
		}
		if len(args) == 0 {
			continue
		}

		reply := s.dispatchSafely(conn, args)
		writer.Write(resp.Encode(nil, reply))
		if err := writer.Flush(); err != nil {
			log.Printf("write error: %v", err)
			return
		}
		if conn.Closing {
			return
		}
	}
}

// dispatchSafely runs one command through the dispatcher behind a
// recover() boundary: a panic inside a handler (an index bug in one of
// the many command implementations) must not take down every other
// connection's server process, only the connection that tripped it.
func (s *Server) dispatchSafely(conn *dispatch.ConnState, args []string) (reply resp.Value) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered panic handling command %q: %v", args[0], r)
			if s.Metrics != nil {
				s.Metrics.CommandsTotal.WithLabelValues("_PANIC").Inc()
			}
			reply = resp.NewError("ERR internal error")
			conn.Closing = true
		}
	}()
	return s.Dispatch.Dispatch(context.Background(), conn, args)
}

// readValue accumulates bytes from r until Decode produces a complete
// frame, growing buf as needed for large bulk payloads.
func (s *Server) readValue(r *bufio.Reader, buf *[]byte) (resp.Value, error) {
	for {
		if v, n, err := resp.Decode(*buf); err != resp.ErrNeedMore {
			if err != nil {
				return resp.Value{}, err
			}
			*buf = (*buf)[n:]
			return v, nil
		}
		chunk := s.chunks.get()
		n, err := r.Read(chunk)
		if n > 0 {
			*buf = append(*buf, chunk[:n]...)
		}
		s.chunks.put(chunk)
		if err != nil {
			if n > 0 {
				continue
			}
			return resp.Value{}, err
		}
	}
}

// tick runs the periodic maintenance cycle: active expiration sweep,
// maxmemory eviction, and autosave-rule-driven snapshotting.
func (s *Server) tick() {
	interval := time.Second / time.Duration(maxInt(s.Config.TickHz, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runMaintenance()
		case <-s.stopTick:
			return
		}
	}
}

func (s *Server) runMaintenance() {
	for i := 0; i < s.Keyspace.NumDBs(); i++ {
		removed := s.Keyspace.DB(i).ExpireActiveSweep(s.Config.ExpireSampleSize)
		if removed > 0 && s.Metrics != nil {
			s.Metrics.ExpiredKeysTotal.Add(float64(removed))
		}
	}

	if maxBytes, err := s.Config.ParseMemorySize(); err == nil && maxBytes > 0 {
		evicted := s.Keyspace.Evict()
		if evicted > 0 && s.Metrics != nil {
			s.Metrics.EvictedKeysTotal.Add(float64(evicted))
		}
	}

	s.maybeAutoSave()
}

// maybeAutoSave checks the configured "seconds changes" rule pairs and
// triggers a snapshot save once any pair's threshold is satisfied,
// mirroring Redis's SAVE rule semantics.
func (s *Server) maybeAutoSave() {
	rules := persistence.ParseSaveRules(s.Config.AutoSaveRules)
	if len(rules) == 0 {
		return
	}
	elapsed := time.Since(s.lastSaveAt)
	changes := s.Keyspace.TotalChanges() - s.lastSaveChanges
	for _, rule := range rules {
		if elapsed >= rule.Seconds && changes >= rule.Changes {
			s.saveSnapshot()
			return
		}
	}
}

func (s *Server) saveSnapshot() {
	path := s.Config.DataDir + "/" + s.Config.SnapshotFile
	if err := persistence.Save(path, s.Keyspace); err != nil {
		log.Printf("snapshot save failed: %v", err)
		return
	}
	s.lastSaveAt = time.Now()
	s.lastSaveChanges = s.Keyspace.TotalChanges()
	if s.Metrics != nil {
		s.Metrics.LastSaveUnixTime.Set(float64(s.lastSaveAt.Unix()))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
