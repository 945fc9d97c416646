package shell

import (
	"fmt"
	"io"
	"log"
	"path"

	"golang.org/x/crypto/ssh"
)

type sshShell struct {
	stdinWriter  io.WriteCloser
	stdoutReader io.Reader

	*ssh.Session
	*log.Logger
}

// Close implements Shell.
func (s *sshShell) Close() error {
	if err := s.stdinWriter.Close(); err != nil {
		s.Printf("close stdin writer error: %v", err)
	}
	s.Session.Close()
	return nil
}

// Read implements Shell.
func (s *sshShell) Read(p []byte) (n int, err error) {
	return s.stdoutReader.Read(p)
}

// Resize implements Shell.
func (s *sshShell) Resize(rows int, cols int) error {
	return s.WindowChange(rows, cols)
}

// Write implements Shell.
func (s *sshShell) Write(p []byte) (n int, err error) {
	return s.stdinWriter.Write(p)
}

// SSHShellProvider opens interactive shells on the remote sandbox
// host, started inside the sandbox root.
type SSHShellProvider struct {
	Root string

	*ssh.Client
	*log.Logger
}

// NewShell implements ShellProvider.
func (s *SSHShellProvider) NewShell(cwd string) (Shell, error) {
	session, err := s.Client.NewSession()
	if err != nil {
		return nil, err
	}

	stdinPipe, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", 24, 80, modes); err != nil {
		session.Close()
		return nil, err
	}

	// cwd 限制在沙箱里, 越界就回沙箱根目录
	dir := path.Join(s.Root, path.Clean("/"+cwd))
	if err := session.Start(fmt.Sprintf("cd %q || cd %q; exec bash -l", dir, s.Root)); err != nil {
		session.Close()
		return nil, err
	}

	return &sshShell{
		stdinWriter:  stdinPipe,
		stdoutReader: stdoutPipe,
		Session:      session,
		Logger:       s.Logger,
	}, nil
}
