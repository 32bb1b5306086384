// Package lock enforces the one-session-per-robot invariant at the process
// level: a second supervisor for the same robot fails to start instead of
// fighting over the session endpoints.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// RobotLock is a per-robot single-instance lock implemented via a PID file
// and flock(2). The lock lives as long as the file descriptor stays open.
type RobotLock struct {
	path string
	f    *os.File
}

// Path returns the lock file path for robot.
func Path(robot string) string {
	return filepath.Join(os.TempDir(), "surveyor_"+robot+".lock")
}

// Acquire takes the exclusive non-blocking lock for robot and records the
// current PID in the lock file. Fails when another supervisor already holds
// the robot.
func Acquire(robot string) (*RobotLock, error) {
	if robot == "" {
		return nil, fmt.Errorf("robot identity is empty")
	}
	path := Path(robot)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	release := func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("robot %s is already supervised: %w", robot, err)
	}

	if err := f.Truncate(0); err != nil {
		release()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		release()
		return nil, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		release()
		return nil, fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		release()
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &RobotLock{path: path, f: f}, nil
}

func (l *RobotLock) Path() string { return l.path }

// Release drops the lock. The PID file is left behind; the next Acquire
// truncates it.
func (l *RobotLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
