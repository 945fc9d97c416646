package server

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/ssh"

	"webide/runner"
	"webide/sandbox"
	"webide/service/shell"
	"webide/store"
	"webide/tree"
	"webide/worker"
)

// App bundles everything a connection needs: the durable store, the
// tree cache, the sandbox runtime with its mirror, the storage worker
// and the execution dispatcher. One App per process, passed to the
// services explicitly — nothing lives in package-level state.
type App struct {
	Store      *store.Store
	Cache      *tree.Cache
	Runtime    sandbox.Runtime
	Mirror     *sandbox.Mirror
	Worker     *worker.Worker
	Dispatcher *runner.Dispatcher
	Shell      shell.ShellProvider
}

// newRuntime picks the sandbox backend: a remote host over SSH when
// one is configured, the local machine otherwise. The shell provider
// has to match so the terminal and executed code see the same files.
func newRuntime() (sandbox.Runtime, shell.ShellProvider, error) {
	logger := log.New(os.Stdout, "[shell] ", log.LstdFlags)
	root := sandbox.DefaultRoot()

	if cfg := getEnvSSH(); cfg != nil {
		client, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dial sandbox host %s: %w", cfg.Addr, err)
		}
		runtime, err := sandbox.NewSSHRuntime(client, root)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return runtime, &shell.SSHShellProvider{Root: root, Client: client, Logger: logger}, nil
	}

	runtime := sandbox.NewLocalRuntime()
	return runtime, &shell.LocalShellProvider{Root: runtime.Root(), Logger: logger}, nil
}

func NewApp(dbPath string) (*App, error) {
	st := store.Open(dbPath)
	cache := tree.NewCache()

	runtime, shellProvider, err := newRuntime()
	if err != nil {
		st.Close()
		return nil, err
	}
	mirror := sandbox.NewMirror(runtime, cache)

	w := worker.New(st, cache, mirror)
	w.Start()

	// 起来先初始化 schema, 建第一份树快照并把文件铺进沙箱
	if _, err := w.Do(context.Background(), worker.InitRequest{}); err != nil {
		w.Stop()
		st.Close()
		return nil, fmt.Errorf("initialize workspace: %w", err)
	}

	return &App{
		Store:      st,
		Cache:      cache,
		Runtime:    runtime,
		Mirror:     mirror,
		Worker:     w,
		Dispatcher: runner.NewDispatcher(cache, runtime),
		Shell:      shellProvider,
	}, nil
}

func (a *App) Close() error {
	a.Worker.Stop()
	return a.Store.Close()
}
