// Package subproc runs a long-lived helper process that answers
// length-prefixed binary requests with one line of output each. The model
// services (segmentation and hand landmarks) speak this protocol.
package subproc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ErrScriptNotFound is returned when no service script could be located.
var ErrScriptNotFound = errors.New("service script not found")

// Config describes how to launch a service.
type Config struct {
	// Python is the interpreter. Empty means a venv interpreter if one is
	// found, else python3.
	Python string
	// Script is the service script path.
	Script string
	// IdleTimeout stops the process after this long without a request.
	// Zero keeps it running until Close.
	IdleTimeout time.Duration
	// Stderr receives the service's stderr. Nil means os.Stderr.
	Stderr io.Writer
	// Env is appended to the inherited environment as KEY=VALUE pairs.
	Env []string
	// ShutdownGrace is how long a stopping service may take to exit after
	// its stdin closes before it is killed. Zero means DefaultShutdownGrace.
	ShutdownGrace time.Duration
}

// DefaultShutdownGrace bounds a service's exit after stdin closes.
const DefaultShutdownGrace = 2 * time.Second

// Process is a lazily started service process. Requests are serialized.
type Process struct {
	cfg Config

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// New creates a Process. The service is not started until the first
// Exchange.
func New(cfg Config) (*Process, error) {
	if cfg.Script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(cfg.Script); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, cfg.Script)
	}
	if cfg.Python == "" {
		cfg.Python = FindVenvPython()
	}
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	return &Process{cfg: cfg}, nil
}

// Exchange writes payload as a 4-byte big-endian length followed by the
// bytes, then reads one response line.
func (p *Process) Exchange(payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return nil, err
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := p.stdin.Write(length); err != nil {
		p.kill()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := p.stdin.Write(payload); err != nil {
		p.kill()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		p.kill()
		return nil, fmt.Errorf("read response: %w", err)
	}

	p.resetIdleTimer()
	return line, nil
}

// Close shuts the service down and waits for it to exit.
func (p *Process) Close() error {
	p.mu.Lock()
	cmd := p.detach()
	p.mu.Unlock()
	return p.reap(cmd)
}

func (p *Process) ensureStarted() error {
	if p.started {
		return nil
	}

	cmd := exec.Command(p.cfg.Python, p.cfg.Script)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = p.cfg.Stderr
	cmd.WaitDelay = p.cfg.ShutdownGrace
	if len(p.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), p.cfg.Env...)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(p.cfg.Script), err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true
	return nil
}

// kill drops a process that broke the protocol so the next request starts
// a fresh one. p.mu must be held.
func (p *Process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	go p.reap(p.detach())
}

// detach closes the service's stdin and forgets it, returning the command
// still to be reaped. p.mu must be held.
func (p *Process) detach() *exec.Cmd {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	if p.stdin != nil {
		p.stdin.Close()
	}

	cmd := p.cmd
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil
	return cmd
}

// reap waits for cmd to exit, killing it once the shutdown grace passes.
// It must not be called with p.mu held.
func (p *Process) reap(cmd *exec.Cmd) error {
	if cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	grace := time.NewTimer(p.cfg.ShutdownGrace)
	defer grace.Stop()

	select {
	case err := <-done:
		return err
	case <-grace.C:
		cmd.Process.Kill()
		<-done
		return fmt.Errorf("%s ignored shutdown, killed after %s", filepath.Base(p.cfg.Script), p.cfg.ShutdownGrace)
	}
}

func (p *Process) resetIdleTimer() {
	if p.cfg.IdleTimeout <= 0 {
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(p.cfg.IdleTimeout, func() {
		p.mu.Lock()
		if p.idleTimer != timer {
			// Superseded by a later request.
			p.mu.Unlock()
			return
		}
		cmd := p.detach()
		p.mu.Unlock()
		p.reap(cmd)
	})
	p.idleTimer = timer
}

// FindScript returns the absolute path of the first existing candidate
// named name under the usual script directories, or "".
func FindScript(name string) string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".fretwise", "scripts", name),
	}
	return firstExisting(candidates)
}

// FindVenvPython looks for a virtual environment interpreter near the
// working directory or the executable.
func FindVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".fretwise/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
