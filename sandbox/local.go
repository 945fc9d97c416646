package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/creack/pty"
)

// LocalRuntime runs user code in a directory on the local machine,
// spawning the interpreter under a pty so output arrives the way a
// terminal would see it.
type LocalRuntime struct {
	root        string
	interpreter string

	*log.Logger
}

func NewLocalRuntime() *LocalRuntime {
	return NewLocalRuntimeAt(sandboxRoot, interpreter)
}

func NewLocalRuntimeAt(root, interpreter string) *LocalRuntime {
	logger := log.New(os.Stdout, "[sandbox] ", log.LstdFlags)

	if err := os.MkdirAll(root, 0750); err != nil {
		logger.Printf("cannot create sandbox root %s: %v", root, err)
		// 目录建不出来, runtime 标记为不可用, 等下次重连再试
		root = ""
	}

	return &LocalRuntime{
		root:        root,
		interpreter: interpreter,
		Logger:      logger,
	}
}

func (l *LocalRuntime) Ready() bool {
	return l.root != ""
}

// Root is the directory the sandbox lives in on the local machine.
func (l *LocalRuntime) Root() string {
	return l.root
}

// abs roots a workspace path inside the sandbox and rejects anything
// that would climb out of it.
func (l *LocalRuntime) abs(p string) (string, error) {
	// 前面加 / 再 Clean, ".." 就爬不出沙箱了
	cleaned := filepath.Clean("/" + p)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid sandbox path: %q", p)
	}
	return filepath.Join(l.root, cleaned), nil
}

func (l *LocalRuntime) WriteFile(path string, content string) error {
	target, err := l.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(content), 0640)
}

func (l *LocalRuntime) MkdirAll(path string) error {
	target, err := l.abs(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(target, 0750)
}

func (l *LocalRuntime) Remove(path string) error {
	target, err := l.abs(path)
	if err != nil {
		return err
	}
	return os.RemoveAll(target)
}

func (l *LocalRuntime) Rename(oldPath, newPath string) error {
	from, err := l.abs(oldPath)
	if err != nil {
		return err
	}
	to, err := l.abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0750); err != nil {
		return err
	}
	return os.Rename(from, to)
}

type localProcess struct {
	terminate context.CancelFunc

	*os.File
	cmd *exec.Cmd
}

func (p *localProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (p *localProcess) Close() error {
	p.terminate()
	return p.File.Close()
}

// Spawn starts the interpreter on a file inside the sandbox.
// Cancelling ctx kills the process.
func (l *LocalRuntime) Spawn(ctx context.Context, path string) (Process, error) {
	target, err := l.abs(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	command := exec.CommandContext(ctx, l.interpreter, target)
	command.Dir = l.root
	command.Env = append(os.Environ(), "TERM=xterm-256color")

	f, err := pty.Start(command)
	if err != nil {
		l.Printf("failed to start %s %s: %v", l.interpreter, path, err)
		cancel()
		return nil, err
	}

	proc := &localProcess{
		File:      f,
		cmd:       command,
		terminate: cancel,
	}

	go func() {
		<-ctx.Done()
		f.Close()
	}()

	return proc, nil
}
