package ipc

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortTempDir creates a temp directory with a short path: unix socket
// paths have a ~104 byte limit and t.TempDir() often exceeds it.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "midisock-t")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// stubDaemon accepts one connection, reads the request and answers
// with reply (or closes without replying when reply is empty).
func stubDaemon(t *testing.T, reply string) string {
	t.Helper()
	path := filepath.Join(shortTempDir(t), "midi_trigger.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		for {
			if _, err := conn.Read(buf); err != nil {
				break
			}
		}
		if reply != "" {
			_, _ = io.WriteString(conn, reply)
		}
	}()
	return path
}

func TestOutcomeExitCodes(t *testing.T) {
	assert.Equal(t, 0, OutcomeSent.ExitCode())
	assert.Equal(t, 1, OutcomeNoArgument.ExitCode())
	assert.Equal(t, 2, OutcomeConnectFailed.ExitCode())
	assert.Equal(t, 3, OutcomeSendFailed.ExitCode())
	assert.Equal(t, 4, OutcomeReceiveFailed.ExitCode())
	assert.Equal(t, 5, OutcomeRejected.ExitCode())
}

func TestSendNoteConnectFailed(t *testing.T) {
	client := NewClient(filepath.Join(shortTempDir(t), "nope.sock"))
	outcome, msg := client.SendNote("C#4")
	assert.Equal(t, OutcomeConnectFailed, outcome)
	assert.Contains(t, msg, "ERR: connect failed (")
}

func TestSendNoteSent(t *testing.T) {
	client := NewClient(stubDaemon(t, "SENT\n"))
	outcome, msg := client.SendNote("C#4")
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, "SENT", msg)
}

func TestSendNoteRejected(t *testing.T) {
	client := NewClient(stubDaemon(t, "ERR: invalid note \"H4\"\n"))
	outcome, msg := client.SendNote("H4")
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, `ERR: invalid note "H4"`, msg)
}

func TestSendNoteReceiveFailed(t *testing.T) {
	// Daemon reads the request but closes without replying.
	client := NewClient(stubDaemon(t, ""))
	outcome, msg := client.SendNote("C#4")
	assert.Equal(t, OutcomeReceiveFailed, outcome)
	assert.Contains(t, msg, "ERR: recv failed")
}

func TestSendNoteUnknownReplyPassesThrough(t *testing.T) {
	client := NewClient(stubDaemon(t, "OK whatever\n"))
	outcome, msg := client.SendNote("C#4")
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, "OK whatever", msg)
}

func TestSocketPathFromEnv(t *testing.T) {
	t.Setenv("MIDISOCK_SOCKET", "/tmp/override.sock")
	assert.Equal(t, "/tmp/override.sock", SocketPathFromEnv("fallback.sock"))

	t.Setenv("MIDISOCK_SOCKET", "")
	assert.Equal(t, "fallback.sock", SocketPathFromEnv("fallback.sock"))
}
