package daemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrAlreadyRunning means another live daemon owns the request socket.
// Callers should exit cleanly: no socket, lock, or MIDI handle has
// been created by the time this is returned.
var ErrAlreadyRunning = errors.New("another midisockd instance is already running")

// probeTimeout bounds the liveness connect to the existing socket.
const probeTimeout = 200 * time.Millisecond

// Guard holds exclusive ownership of the daemon's communication
// endpoint. Acquire it before binding; Release it on every exit path.
type Guard struct {
	lock       lockFile
	socketPath string
}

// Acquire establishes single-instance ownership for socketPath.
//
// Liveness is decided by probing the socket: if something accepts the
// connection, a daemon is alive and ErrAlreadyRunning is returned. A
// socket file nobody serves is a leftover from a crashed instance and
// is removed so the server can rebind. The flock file makes the
// probe-remove-bind sequence race-free against a concurrently starting
// second daemon.
func Acquire(socketPath, lockPath string) (*Guard, error) {
	if err := refuseSymlink(socketPath); err != nil {
		return nil, err
	}

	g := &Guard{lock: lockFile{path: lockPath}, socketPath: socketPath}
	if err := g.lock.acquire(); err != nil {
		return nil, err
	}

	if _, err := os.Lstat(socketPath); err == nil {
		conn, err := net.DialTimeout("unix", socketPath, probeTimeout)
		if err == nil {
			conn.Close()
			_ = g.lock.release()
			return nil, ErrAlreadyRunning
		}
		// Stale artifact: remove it so Listen can recreate it.
		if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
			_ = g.lock.release()
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	return g, nil
}

// Listen binds the unix socket with owner-only permissions. Only the
// guard owner may create the endpoint artifact.
func (g *Guard) Listen() (net.Listener, error) {
	// Re-check just before bind; the path sat unowned while we held
	// only the flock.
	if err := refuseSymlink(g.socketPath); err != nil {
		return nil, err
	}
	listener, err := net.Listen("unix", g.socketPath)
	if err != nil {
		return nil, fmt.Errorf("bind socket: %w", err)
	}
	if err := os.Chmod(g.socketPath, 0o600); err != nil {
		listener.Close()
		os.Remove(g.socketPath)
		return nil, fmt.Errorf("set socket permissions: %w", err)
	}
	return listener, nil
}

// SocketPath returns the guarded endpoint path.
func (g *Guard) SocketPath() string {
	return g.socketPath
}

// Release removes the socket artifact and drops the lock.
func (g *Guard) Release() error {
	var errs []error
	if err := os.Remove(g.socketPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove socket: %w", err))
	}
	if err := g.lock.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func refuseSymlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat socket path: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("socket path %s is a symlink; refusing", path)
	}
	return nil
}
