package shell

import (
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/creack/pty"
)

type PTYShell struct {
	terminate context.CancelFunc

	*os.File
	*log.Logger
}

func (p *PTYShell) Resize(rows, cols int) error {
	return pty.Setsize(p.File, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

func (p *PTYShell) Close() error {
	p.terminate()
	return p.File.Close()
}

// LocalShellProvider spawns bash chrooted (by convention, not
// syscall) into the sandbox root, so the terminal and executed code
// see the same files.
type LocalShellProvider struct {
	Root string

	*log.Logger
}

func (l *LocalShellProvider) NewShell(cwd string) (Shell, error) {
	ctx, cancel := context.WithCancel(context.Background())

	command := exec.CommandContext(ctx, "bash", "-l")

	// cwd 限制在沙箱里, 越界就回沙箱根目录
	dir := filepath.Join(l.Root, filepath.Clean("/"+cwd))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		dir = l.Root
	}
	command.Dir = dir

	command.Env = append(os.Environ(), "TERM=xterm-256color")

	f, err := pty.Start(command)
	if err != nil {
		l.Printf("Failed to start pty: %v", err)
		cancel()
		return nil, err
	}

	sh := &PTYShell{
		File:      f,
		terminate: cancel,
		Logger:    l.Logger,
	}

	go func() {
		<-ctx.Done()
		sh.Close()
	}()

	return sh, nil
}
