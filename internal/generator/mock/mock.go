// Package mock provides in-memory fakes of [generator.Launcher] and
// [generator.Process] for unit tests.
//
// A fake [Process] exposes the write side of its stdout pipe through
// [Process.Write] so tests can feed PCM to whatever consumes the generator.
// It stays "running" until Kill or Exit is called.
package mock

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/MrWong99/soursound/internal/generator"
)

// Process is a fake generator process.
type Process struct {
	pid int
	pr  *io.PipeReader
	pw  *io.PipeWriter

	mu        sync.Mutex
	exited    chan struct{}
	done      bool
	killCalls int
	closed    bool
}

// NewProcess returns a running fake process with the given PID.
func NewProcess(pid int) *Process {
	pr, pw := io.Pipe()
	return &Process{pid: pid, pr: pr, pw: pw, exited: make(chan struct{})}
}

var _ generator.Process = (*Process)(nil)

// Stdout implements [generator.Process].
func (p *Process) Stdout() io.Reader { return p.pr }

// PID implements [generator.Process].
func (p *Process) PID() int { return p.pid }

// Kill implements [generator.Process]. Killing an exited process returns
// [os.ErrProcessDone], like the real thing.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killCalls++
	if p.done {
		return os.ErrProcessDone
	}
	p.exitLocked()
	return nil
}

// Exit simulates the process ending on its own.
func (p *Process) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.exitLocked()
	}
}

func (p *Process) exitLocked() {
	p.done = true
	_ = p.pw.Close()
	close(p.exited)
}

// Wait implements [generator.Process].
func (p *Process) Wait() error {
	<-p.exited
	return nil
}

// Close implements [generator.Process].
func (p *Process) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.pr.Close()
}

// Write feeds data to the process's stdout. It blocks until a reader
// consumes it and fails once the process has exited.
func (p *Process) Write(b []byte) (int, error) { return p.pw.Write(b) }

// Running reports whether the process has neither been killed nor exited.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

// KillCalls returns how many times Kill was called.
func (p *Process) KillCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killCalls
}

// Closed reports whether Close was called.
func (p *Process) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// LaunchCall records the arguments of one Launch call.
type LaunchCall struct {
	Path string
	Args []string
}

// Launcher is a fake [generator.Launcher]. Each successful Launch returns a
// fresh [Process] with an increasing PID starting at 1000.
type Launcher struct {
	mu sync.Mutex

	// LaunchError, when set, is returned by every Launch call.
	LaunchError error

	calls     []LaunchCall
	processes []*Process
}

var _ generator.Launcher = (*Launcher)(nil)

// Launch implements [generator.Launcher].
func (l *Launcher) Launch(_ context.Context, path string, args []string) (generator.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, LaunchCall{Path: path, Args: append([]string(nil), args...)})
	if l.LaunchError != nil {
		return nil, l.LaunchError
	}
	p := NewProcess(1000 + len(l.processes))
	l.processes = append(l.processes, p)
	return p, nil
}

// Calls returns a copy of the recorded Launch calls.
func (l *Launcher) Calls() []LaunchCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LaunchCall(nil), l.calls...)
}

// Processes returns every process launched so far, in order.
func (l *Launcher) Processes() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.processes...)
}

// Last returns the most recently launched process, or nil.
func (l *Launcher) Last() *Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.processes) == 0 {
		return nil
	}
	return l.processes[len(l.processes)-1]
}

// Running returns the processes that are still alive.
func (l *Launcher) Running() []*Process {
	var out []*Process
	for _, p := range l.Processes() {
		if p.Running() {
			out = append(out, p)
		}
	}
	return out
}
