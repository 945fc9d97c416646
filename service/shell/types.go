package shell

import "io"

// Shell is an interactive terminal into the sandbox.
type Shell interface {
	io.ReadWriter
	Resize(rows, cols int) error
	Close() error
}

// ShellProvider spawns shells; cwd is a workspace-relative directory.
type ShellProvider interface {
	NewShell(cwd string) (Shell, error)
}
