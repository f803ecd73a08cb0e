// Package filepool is the Go-native stand-in for the origin-private file
// pool (OPFS SAHPool in a browser) that spec.md §4.1 requires: a file system
// offering exclusive-handle semantics, such that only one holder at a time
// may have the database file open.
//
// An exclusive advisory flock held for the lifetime of an *os.File.
package filepool

import (
	"os"
	"syscall"
)

// Handle is a file held open under an exclusive advisory lock.
type Handle interface {
	// File returns the locked file.
	File() *os.File
	// Close releases the lock and closes the file.
	Close() error
}

// Open acquires the named file under an exclusive, non-blocking advisory
// lock. It fails immediately (rather than waiting) if another Handle
// already holds the lock, mirroring OPFS SAHPool's exclusive-open
// semantics: a second opener must not be allowed to silently queue behind
// the first, the caller (the Leader Election component) is the only
// thing permitted to hold this file open at a time.
func Open(path string, flag int, perm os.FileMode) (Handle, error) {
	var f, err = os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	if err = lock(f, true); err != nil {
		f.Close()
		return nil, err
	}
	return &handle{file: f}, nil
}

type handle struct {
	file *os.File
}

func (h *handle) File() *os.File { return h.file }

func (h *handle) Close() error {
	if err := lock(h.file, false); err != nil {
		return err
	}
	return h.file.Close()
}

func lock(f *os.File, exclusive bool) error {
	var how = syscall.LOCK_UN
	if exclusive {
		how = syscall.LOCK_EX
	}
	return syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB)
}

// IsLocked reports whether err is the "already locked by another holder"
// failure mode of Open (EWOULDBLOCK/EAGAIN from a non-blocking flock).
func IsLocked(err error) bool {
	return err == syscall.EWOULDBLOCK || err == syscall.EAGAIN
}
