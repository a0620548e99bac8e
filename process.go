package uvcc

import (
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// ExitCallback fires once a spawned process has terminated, reporting its
// exit code and the terminating signal (0 if it exited normally).
type ExitCallback func(p *Process, exitStatus int, termSignal int)

// ProcessOptions configures Spawn, mirroring the original's uv_process
// construction options narrowed to what a Go child process needs. Args is
// the full argument vector, Args[0] included; when it is empty the child
// gets Path alone as its argv.
type ProcessOptions struct {
	Path   string
	Args   []string
	Env    []string
	Dir    string
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
	OnExit ExitCallback
}

// Process is a handle over a spawned child: exit-wait is emulated the
// same way file reads are, by handing a blocking Wait() to the worker
// pool and surfacing the result as a request completion (§4.G's "files
// are not started by the engine" pattern extended to child processes).
type Process struct {
	*Handle

	mu     sync.Mutex
	cmd    *exec.Cmd
	onExit ExitCallback
}

// Spawn starts the child process described by opts.
func Spawn(loop *Loop, opts ProcessOptions) (*Process, error) {
	cmd := exec.Command(opts.Path)
	if len(opts.Args) > 0 {
		cmd.Args = opts.Args
	}
	cmd.Env = opts.Env
	cmd.Dir = opts.Dir
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, WrapError("Spawn", err)
	}

	h := newHandle(loop, KindProcess, -1)
	p := &Process{Handle: h, cmd: cmd, onExit: opts.OnExit}
	p.setActive(true)

	r := newRequest(loop, KindWork, p.Handle, nil)
	r.completion.Set(func(_ *Request, status ErrorKind, result any) {
		p.setActive(false)
		exitStatus, termSignal := 0, 0
		if ws, ok := result.(unix.WaitStatus); ok {
			if ws.Exited() {
				exitStatus = ws.ExitStatus()
			}
			if ws.Signaled() {
				termSignal = int(ws.Signal())
			}
		}
		if p.onExit != nil {
			p.onExit(p, exitStatus, termSignal)
		}
	})
	loop.reactor.QueueWork(r.id, func() (any, error) {
		err := cmd.Wait()
		if cmd.ProcessState == nil {
			return unix.WaitStatus(0), err
		}
		if ws, ok := cmd.ProcessState.Sys().(unix.WaitStatus); ok {
			return ws, nil
		}
		return unix.WaitStatus(0), nil
	})
	return p, nil
}

// Pid returns the OS process id of the spawned child.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Kill sends sig to the child process.
func (p *Process) Kill(sig int) error {
	p.mu.Lock()
	proc := p.cmd.Process
	p.mu.Unlock()
	if proc == nil {
		return NewError("Kill", KindInvalid, "process not running")
	}
	if err := proc.Signal(unix.Signal(sig)); err != nil {
		return WrapError("Kill", err)
	}
	return nil
}

// Close releases the handle. It does not kill the child; callers that
// want that must call Kill first.
func (p *Process) Close(cb CloseCallback) {
	p.closeHandle(cb)
}
