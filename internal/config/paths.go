package config

import "path/filepath"

// Default file names, all resolved relative to the daemon's working
// directory so the trigger tools can find the socket without any
// discovery step.
const (
	ConfigFileName = "config.yaml"
	SocketFileName = "midi_trigger.sock"
	LockFileName   = "midisockd.lock"
)

// Paths holds the filesystem locations used by the daemon and client.
type Paths struct {
	// BaseDir is the directory the artifacts live in.
	BaseDir string
}

// PathsIn returns Paths rooted at the given directory ("." for the
// process working directory).
func PathsIn(dir string) *Paths {
	return &Paths{BaseDir: dir}
}

// ConfigFile returns the path to config.yaml.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir, ConfigFileName)
}

// SocketFile returns the path to the request socket.
func (p *Paths) SocketFile() string {
	return filepath.Join(p.BaseDir, SocketFileName)
}

// LockFile returns the path to the single-instance lock file.
func (p *Paths) LockFile() string {
	return filepath.Join(p.BaseDir, LockFileName)
}
