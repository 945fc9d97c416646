package sandbox

import (
	"context"
	"io"
)

// Process is a spawned program inside the sandbox. Reading yields its
// output as it is produced; Wait blocks until exit and returns the
// exit code.
type Process interface {
	io.Reader
	Wait() (int, error)
	Close() error
}

// Runtime is the sandboxed execution environment: a filesystem the
// mirror writes into plus an interpreter to spawn against it. Paths
// are workspace-relative, forward-slash separated.
type Runtime interface {
	Ready() bool
	WriteFile(path string, content string) error
	MkdirAll(path string) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Spawn(ctx context.Context, path string) (Process, error)
}
