//go:build unix || linux || darwin

// flock(2) implementation for Unix platforms.
// Both methods are called with l.mu held by the exported Lock/Unlock.
package xio

import "syscall"

func (l *DirLock) lock() error {
	// Blocking exclusive flock — no LOCK_NB so the call waits for the
	// previous owner of the directory to finish.
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_EX)
}

func (l *DirLock) unlock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
