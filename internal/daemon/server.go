// Package daemon implements the midisockd request server: a unix
// socket that accepts one note name per connection and answers with
// SENT or an ERR: line.
package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/runger/midisock/internal/ipc"
	"github.com/runger/midisock/internal/note"
)

// Sink is the note output the server drives. Implemented by
// midiout.Sink; tests substitute a recorder.
type Sink interface {
	NoteOn(key uint8) error
	NoteOff(key uint8) error
	Close() error
}

const (
	// NoteHold is the default gap between Note-On and Note-Off.
	NoteHold = 50 * time.Millisecond

	// readTimeout drops half-open clients that connect but never send.
	readTimeout = 1 * time.Second

	writeTimeout = 1 * time.Second

	// maxRequestSize bounds a single request payload.
	maxRequestSize = 1024
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Guard is the acquired single-instance guard (required).
	Guard *Guard

	// Sink is the open note output (required).
	Sink Sink

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Hold overrides NoteHold; tests use a shorter pulse.
	Hold time.Duration
}

// Server owns the accept loop. Connections may be handled
// concurrently, but note dispatch is a critical section: the sink is a
// single shared output with one writer at a time.
type Server struct {
	guard  *Guard
	sink   Sink
	logger *slog.Logger
	hold   time.Duration

	dispatchMu   sync.Mutex
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer validates the configuration and builds a Server.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil || cfg.Guard == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hold := cfg.Hold
	if hold == 0 {
		hold = NoteHold
	}
	return &Server{
		guard:        cfg.Guard,
		sink:         cfg.Sink,
		logger:       logger,
		hold:         hold,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start binds the socket and serves until the context is cancelled or
// Shutdown is called. On return the sink is closed; releasing the
// guard stays with whoever acquired it.
func (s *Server) Start(ctx context.Context) error {
	listener, err := s.guard.Listen()
	if err != nil {
		return err
	}

	s.logger.Info("daemon listening",
		"socket", s.guard.SocketPath(),
		"pid", os.Getpid(),
	)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdownChan:
		}
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			// Transient accept failures must not kill the loop.
			s.logger.Warn("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}

	s.wg.Wait()
	if err := s.sink.Close(); err != nil {
		s.logger.Warn("failed to close MIDI output", "error", err)
	}
	s.logger.Info("daemon stopped")
	return nil
}

// Shutdown stops accepting connections and lets Start return.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("daemon shutting down")
		close(s.shutdownChan)
	})
}

// handleConn serves a single request. A client that disconnected or
// never sent anything is dropped silently; every received request gets
// a reply, and no request failure ever terminates the daemon.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	raw, err := readRequest(conn)
	if err != nil {
		s.logger.Debug("connection dropped before request", "error", err)
		return
	}

	reply := s.dispatch(raw)

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := io.WriteString(conn, reply+"\n"); err != nil {
		// Client went away while we were sending; their problem.
		s.logger.Debug("failed to write reply", "error", err)
	}
}

// dispatch turns a raw payload into a reply, driving the codec and the
// sink. The whole Note-On/Note-Off pair runs under the dispatch lock.
func (s *Server) dispatch(raw string) string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(fields) == 0 {
		s.logger.Debug("empty request")
		return "ERR: empty request"
	}
	name := fields[0]

	key, err := note.Parse(name)
	if err != nil {
		s.logger.Debug("rejected request", "note", name, "error", err)
		return fmt.Sprintf("ERR: invalid note %q", name)
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if err := s.sink.NoteOn(key); err != nil {
		s.logger.Warn("note on failed", "note", name, "error", err)
		return "ERR: " + err.Error()
	}
	time.Sleep(s.hold)
	if err := s.sink.NoteOff(key); err != nil {
		s.logger.Warn("note off failed", "note", name, "error", err)
		return "ERR: " + err.Error()
	}

	s.logger.Debug("note sent", "note", name, "key", key)
	return ipc.ReplySent
}

// readRequest reads the request payload up to the first newline, EOF,
// or the size cap.
func readRequest(conn net.Conn) (string, error) {
	buf := make([]byte, maxRequestSize)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return string(buf[:i]), nil
		}
		if err == io.EOF {
			return string(buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
