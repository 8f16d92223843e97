package generator

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Process is a launched generator.
type Process interface {
	// Stdout is the PCM stream. It reaches EOF (or fails) once the process
	// exits or the Process is closed.
	Stdout() io.Reader

	// PID returns the operating-system process ID.
	PID() int

	// Kill terminates the process. Killing a process that already exited
	// returns an error wrapping [os.ErrProcessDone].
	Kill() error

	// Wait blocks until the process exits and releases its resources.
	Wait() error

	// Close releases the stdout stream.
	Close() error
}

// Launcher starts generator processes.
type Launcher interface {
	Launch(ctx context.Context, path string, args []string) (Process, error)
}

// ExecLauncher runs generators as child processes through os/exec.
type ExecLauncher struct{}

var _ Launcher = ExecLauncher{}

// Launch starts path with args. stdout is wired to an os.Pipe rather than
// [exec.Cmd.StdoutPipe] so that Wait can run concurrently with reads; stderr
// is discarded.
func (ExecLauncher) Launch(ctx context.Context, path string, args []string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, args...)
	cmd.Stdout = pw
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, err
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()
	return &execProcess{cmd: cmd, stdout: pr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *os.File
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) PID() int          { return p.cmd.Process.Pid }
func (p *execProcess) Kill() error       { return p.cmd.Process.Kill() }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }
func (p *execProcess) Close() error      { return p.stdout.Close() }
