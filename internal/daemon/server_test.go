package daemon

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/midisock/internal/ipc"
)

// recordingSink captures the note event sequence and can inject
// failures.
type recordingSink struct {
	mu         sync.Mutex
	events     []string
	noteOnErr  error
	noteOffErr error
	closed     bool
}

func (r *recordingSink) NoteOn(key uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.noteOnErr != nil {
		return r.noteOnErr
	}
	r.events = append(r.events, fmt.Sprintf("on %d", key))
	return nil
}

func (r *recordingSink) NoteOff(key uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.noteOffErr != nil {
		return r.noteOffErr
	}
	r.events = append(r.events, fmt.Sprintf("off %d", key))
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// startServer runs a server over a recording sink and returns the
// socket path. It is torn down with the test.
func startServer(t *testing.T, sink *recordingSink) string {
	t.Helper()
	dir := shortTempDir(t)
	socketPath := filepath.Join(dir, "midi_trigger.sock")
	lockPath := filepath.Join(dir, "midisockd.lock")

	guard, err := Acquire(socketPath, lockPath)
	require.NoError(t, err)

	server, err := NewServer(&ServerConfig{
		Guard: guard,
		Sink:  sink,
		Hold:  time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		assert.NoError(t, guard.Release())
	})

	waitForSocket(t, socketPath)
	return socketPath
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server socket never came up")
}

func sendNote(t *testing.T, socketPath, note string) (ipc.Outcome, string) {
	t.Helper()
	return ipc.NewClient(socketPath).SendNote(note)
}

func TestServerSendsNotePulse(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	outcome, msg := sendNote(t, socketPath, "C#4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
	assert.Equal(t, ipc.ReplySent, msg)
	assert.Equal(t, []string{"on 61", "off 61"}, sink.snapshot())
}

func TestServerFirstTokenOnly(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	outcome, _ := sendNote(t, socketPath, "C4, E4 G4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
	assert.Equal(t, []string{"on 60", "off 60"}, sink.snapshot())
}

func TestServerEmptyRequest(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	outcome, msg := sendNote(t, socketPath, "")
	assert.Equal(t, ipc.OutcomeRejected, outcome)
	assert.Equal(t, "ERR: empty request", msg)
	assert.Empty(t, sink.snapshot())

	// The daemon must still serve the next request.
	outcome, _ = sendNote(t, socketPath, "C4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
}

func TestServerInvalidNote(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	outcome, msg := sendNote(t, socketPath, "H4")
	assert.Equal(t, ipc.OutcomeRejected, outcome)
	assert.Contains(t, msg, "ERR: invalid note")
	assert.Empty(t, sink.snapshot(), "no MIDI I/O may happen for an unparsable note")

	outcome, _ = sendNote(t, socketPath, "C4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
}

func TestServerMidiFailureIsPerRequest(t *testing.T) {
	sink := &recordingSink{noteOnErr: fmt.Errorf("send note on: port gone")}
	socketPath := startServer(t, sink)

	outcome, msg := sendNote(t, socketPath, "C4")
	assert.Equal(t, ipc.OutcomeRejected, outcome)
	assert.Contains(t, msg, "ERR: ")
	assert.Contains(t, msg, "port gone")

	// Endpoint comes back: the daemon recovers without restarting.
	sink.mu.Lock()
	sink.noteOnErr = nil
	sink.mu.Unlock()

	outcome, _ = sendNote(t, socketPath, "C4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
}

func TestServerClientDisconnectIsNoop(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	// Connect and leave without sending anything.
	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	outcome, _ := sendNote(t, socketPath, "C4")
	assert.Equal(t, ipc.OutcomeSent, outcome)
}

func TestServerSerializesDispatch(t *testing.T) {
	sink := &recordingSink{}
	socketPath := startServer(t, sink)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _ := sendNote(t, socketPath, "C4")
			assert.Equal(t, ipc.OutcomeSent, outcome)
		}()
	}
	wg.Wait()

	events := sink.snapshot()
	require.Len(t, events, 2*n)
	// The on/off pairs must never interleave across requests.
	for i := 0; i < len(events); i += 2 {
		assert.Equal(t, "on 60", events[i])
		assert.Equal(t, "off 60", events[i+1])
	}
}

func TestServerClosesSinkOnShutdown(t *testing.T) {
	dir := shortTempDir(t)
	socketPath := filepath.Join(dir, "midi_trigger.sock")
	guard, err := Acquire(socketPath, filepath.Join(dir, "midisockd.lock"))
	require.NoError(t, err)
	defer guard.Release()

	sink := &recordingSink{}
	server, err := NewServer(&ServerConfig{Guard: guard, Sink: sink, Hold: time.Millisecond})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Start(context.Background()) }()
	waitForSocket(t, socketPath)

	server.Shutdown()
	require.NoError(t, <-done)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.True(t, sink.closed)
}
