package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// lockFile is a flock(2)-backed exclusive lock. It closes the window
// between the socket liveness probe and the bind: two daemons started
// at the same instant both see a stale socket, but only one wins the
// flock.
type lockFile struct {
	file *os.File
	path string
}

// acquire takes an exclusive non-blocking lock and records our PID in
// the file for diagnostics.
func (l *lockFile) acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		pid := readPID(f)
		f.Close()
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			if pid > 0 {
				return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, pid)
			}
			return ErrAlreadyRunning
		}
		return fmt.Errorf("flock %s: %w", l.path, err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		return fmt.Errorf("write PID to lock file: %w", err)
	}

	l.file = f
	return nil
}

// release drops the lock and removes the file.
func (l *lockFile) release() error {
	if l.file == nil {
		return nil
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func readPID(f *os.File) int {
	if _, err := f.Seek(0, 0); err != nil {
		return 0
	}
	buf := make([]byte, 32)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}
