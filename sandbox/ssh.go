package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHRuntime is the remote variant: the sandbox lives on another host,
// file operations go over SFTP and processes run in SSH sessions.
type SSHRuntime struct {
	client *ssh.Client
	files  *sftp.Client

	root        string
	interpreter string

	*log.Logger
}

func NewSSHRuntime(client *ssh.Client, root string) (*SSHRuntime, error) {
	logger := log.New(os.Stdout, "[sandbox] ", log.LstdFlags)

	files, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("open sftp client: %w", err)
	}
	if err := files.MkdirAll(root); err != nil {
		files.Close()
		return nil, fmt.Errorf("create sandbox root %s: %w", root, err)
	}

	return &SSHRuntime{
		client:      client,
		files:       files,
		root:        root,
		interpreter: interpreter,
		Logger:      logger,
	}, nil
}

func (r *SSHRuntime) Ready() bool {
	return r.client != nil && r.files != nil
}

func (r *SSHRuntime) Close() error {
	if r.files != nil {
		r.files.Close()
	}
	return r.client.Close()
}

func (r *SSHRuntime) abs(p string) (string, error) {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid sandbox path: %q", p)
	}
	return path.Join(r.root, cleaned), nil
}

func (r *SSHRuntime) WriteFile(p string, content string) error {
	target, err := r.abs(p)
	if err != nil {
		return err
	}
	if err := r.files.MkdirAll(path.Dir(target)); err != nil {
		return err
	}
	f, err := r.files.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(content))
	return err
}

func (r *SSHRuntime) MkdirAll(p string) error {
	target, err := r.abs(p)
	if err != nil {
		return err
	}
	return r.files.MkdirAll(target)
}

func (r *SSHRuntime) Remove(p string) error {
	target, err := r.abs(p)
	if err != nil {
		return err
	}
	return r.files.RemoveAll(target)
}

func (r *SSHRuntime) Rename(oldPath, newPath string) error {
	from, err := r.abs(oldPath)
	if err != nil {
		return err
	}
	to, err := r.abs(newPath)
	if err != nil {
		return err
	}
	if err := r.files.MkdirAll(path.Dir(to)); err != nil {
		return err
	}
	return r.files.Rename(from, to)
}

type sshProcess struct {
	session *ssh.Session
	output  io.Reader
}

func (p *sshProcess) Read(b []byte) (int, error) {
	return p.output.Read(b)
}

func (p *sshProcess) Wait() (int, error) {
	err := p.session.Wait()
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func (p *sshProcess) Close() error {
	return p.session.Close()
}

func (r *SSHRuntime) Spawn(ctx context.Context, p string) (Process, error) {
	target, err := r.abs(p)
	if err != nil {
		return nil, err
	}

	session, err := r.client.NewSession()
	if err != nil {
		return nil, err
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	// 2>&1 把 stderr 合进 stdout, 和本地 pty 行为保持一致
	command := fmt.Sprintf("cd %q && %s %q 2>&1", r.root, r.interpreter, target)
	if err := session.Start(command); err != nil {
		session.Close()
		return nil, err
	}

	go func() {
		<-ctx.Done()
		session.Close()
	}()

	return &sshProcess{session: session, output: stdout}, nil
}
