package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"webide/sandbox"
	"webide/store"
	"webide/tree"
)

// ErrExecution wraps spawn and wait failures of the sandboxed process.
var ErrExecution = errors.New("execution failed")

// Dispatcher resolves a node id to a sandbox path, runs the
// interpreter on it and streams the output to a sink as it arrives.
type Dispatcher struct {
	cache   *tree.Cache
	runtime sandbox.Runtime

	*log.Logger
}

func NewDispatcher(cache *tree.Cache, runtime sandbox.Runtime) *Dispatcher {
	return &Dispatcher{
		cache:   cache,
		runtime: runtime,
		Logger:  log.New(os.Stdout, "[runner] ", log.LstdFlags),
	}
}

// Run executes the file behind id and returns its exit code. Output
// chunks go to sink the moment the process produces them; the exit
// code is appended as a final human-readable line. A runtime that is
// not ready yet is an expected transient state, reported on the sink
// and not as an error. Cancelling ctx kills the process.
func (d *Dispatcher) Run(ctx context.Context, id string, sink io.Writer) (int, error) {
	record := d.cache.Record(id)
	if record == nil {
		return -1, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if record.IsDir() {
		return -1, fmt.Errorf("%w: %s is a directory", store.ErrValidation, id)
	}
	path := d.cache.ResolvePath(id)
	if path == "" {
		return -1, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	if !d.runtime.Ready() {
		fmt.Fprint(sink, "runtime is not ready yet, try again shortly\r\n")
		return 0, nil
	}

	proc, err := d.runtime.Spawn(ctx, path)
	if err != nil {
		fmt.Fprintf(sink, "failed to start %s: %v\r\n", path, err)
		return -1, fmt.Errorf("%w: spawn %s: %v", ErrExecution, path, err)
	}
	defer proc.Close()

	// 按块转发输出; pty 在子进程退出后读会报 EIO, 当 EOF 处理
	buf := make([]byte, 4096)
	for {
		n, readErr := proc.Read(buf)
		if n > 0 {
			if _, err := sink.Write(buf[:n]); err != nil {
				d.Printf("sink write error: %v", err)
				break
			}
		}
		if readErr != nil {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		proc.Wait()
		fmt.Fprint(sink, "\r\nprocess terminated\r\n")
		return -1, err
	}

	code, err := proc.Wait()
	if err != nil {
		fmt.Fprintf(sink, "\r\nprocess failed: %v\r\n", err)
		return -1, fmt.Errorf("%w: wait %s: %v", ErrExecution, path, err)
	}

	fmt.Fprintf(sink, "\r\nprocess exited with code %d\r\n", code)
	return code, nil
}
