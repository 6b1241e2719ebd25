package ipc

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
)

// Default timeouts. Connections are local, so anything slower than
// this means the daemon is gone, not busy.
const (
	ConnectTimeout = 500 * time.Millisecond
	ReplyTimeout   = 400 * time.Millisecond
)

// Outcome classifies a single invocation so calling automation can
// branch on the exit status.
type Outcome int

const (
	OutcomeSent          Outcome = iota // note accepted and sent
	OutcomeNoArgument                   // no note name supplied
	OutcomeConnectFailed                // daemon not running / unreachable
	OutcomeSendFailed                   // connected but the write failed
	OutcomeReceiveFailed                // sent but no reply arrived
	OutcomeRejected                     // daemon replied with an ERR: line
)

// ExitCode maps the outcome onto the process exit status.
func (o Outcome) ExitCode() int {
	return int(o)
}

// SocketPathFromEnv returns the override from MIDISOCK_SOCKET, or
// fallback when unset.
func SocketPathFromEnv(fallback string) string {
	if path := os.Getenv("MIDISOCK_SOCKET"); path != "" {
		return path
	}
	return fallback
}

// Client sends single-note requests to a running daemon. Each call is
// at-most-once: no retries on any failure.
type Client struct {
	SocketPath     string
	ConnectTimeout time.Duration
	ReplyTimeout   time.Duration
}

// NewClient returns a client for the given socket path with default
// timeouts.
func NewClient(socketPath string) *Client {
	return &Client{
		SocketPath:     socketPath,
		ConnectTimeout: ConnectTimeout,
		ReplyTimeout:   ReplyTimeout,
	}
}

// SendNote performs one request/reply exchange. It returns the outcome
// and the line the caller should print: "SENT" on success, the
// daemon's ERR: line verbatim on rejection, or a locally produced
// ERR: line for transport failures.
func (c *Client) SendNote(noteName string) (Outcome, string) {
	dialer := net.Dialer{Timeout: c.ConnectTimeout}
	conn, err := dialer.Dial("unix", c.SocketPath)
	if err != nil {
		return OutcomeConnectFailed, fmt.Sprintf("ERR: connect failed (%v)", err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(c.ConnectTimeout))
	if _, err := conn.Write([]byte(noteName + "\n")); err != nil {
		return OutcomeSendFailed, fmt.Sprintf("ERR: send failed (%v)", err)
	}
	// Half-close so the daemon sees EOF even without the newline.
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.ReplyTimeout))
	data, err := io.ReadAll(io.LimitReader(conn, maxReplySize))
	if err != nil {
		return OutcomeReceiveFailed, fmt.Sprintf("ERR: recv failed (%v)", err)
	}

	line := strings.TrimSpace(string(data))
	switch {
	case line == "":
		return OutcomeReceiveFailed, "ERR: recv failed (connection closed without reply)"
	case line == ReplySent:
		return OutcomeSent, ReplySent
	case strings.HasPrefix(line, ErrPrefix):
		return OutcomeRejected, line
	default:
		// Unknown but non-error reply; surface it as-is.
		return OutcomeSent, line
	}
}
