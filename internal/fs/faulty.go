package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
type Fault struct {
	// FailAfterBytes fails writes once this many bytes were written through
	// a single open file. -1 disables the limit.
	FailAfterBytes int64
	// Torn writes the bytes that still fit under FailAfterBytes before
	// failing, leaving a partially written record behind like a crash would.
	Torn        bool
	FailOnSync  bool
	FailOnClose bool
	Err         error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS    FileSystem
	mu    sync.Mutex
	rules map[string]Fault // substring of the file name -> fault

	// Default applies to files no rule matches.
	Default Fault
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:      fs,
		rules:   make(map[string]Fault),
		Default: Fault{FailAfterBytes: -1},
	}
}

// AddRule adds a fault injection rule for files whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// ClearRules removes every rule.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = make(map[string]Fault)
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	fault := f.Default
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	f.mu.Unlock()

	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error)       { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error { return f.FS.MkdirAll(path, perm) }
func (f *FaultyFS) Remove(name string) error                     { return f.FS.Remove(name) }

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	limit := ff.fault.FailAfterBytes
	if limit >= 0 && ff.written+int64(len(p)) > limit {
		if !ff.fault.Torn {
			return 0, ff.fault.Err
		}
		room := limit - ff.written
		if room <= 0 {
			return 0, ff.fault.Err
		}
		n, err := ff.File.Write(p[:room])
		ff.written += int64(n)
		if err != nil {
			return n, err
		}
		return n, ff.fault.Err
	}

	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.Err
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.Err
	}
	return ff.File.Close()
}
