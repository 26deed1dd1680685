// Package encoder supervises one external encoder process: spawning
// it with stdin closed and stdout/stderr piped, classifying its exit,
// and surfacing stdout bytes and lifecycle transitions as events.
package encoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/lanestream/broadcastcore/internal/models"
)

// State is a position in the lifecycle spawning -> running ->
// {completed | errored | killed}.
type State string

const (
	StateSpawning  State = "spawning"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateKilled    State = "killed"
)

// EventKind classifies one Event sent on Process.Events().
type EventKind string

const (
	EventData  EventKind = "data"
	EventEnd   EventKind = "end"
	EventError EventKind = "error"
	EventClose EventKind = "close"
)

// Event is one occurrence on the process's stdout/lifecycle stream.
type Event struct {
	Kind EventKind
	Data []byte // set on EventData
	Err  error  // set on EventError
}

const maxStderrLines = 50

const killGrace = 3 * time.Second

// Process supervises one spawned encoder and reports its stdout bytes
// and lifecycle through a single Events() channel.
type Process struct {
	binaryPath string
	args       []string

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu    sync.Mutex
	state State

	killRequested atomic.Bool
	bytesProduced atomic.Bool

	stderrMu    sync.Mutex
	stderrLines []string

	events chan Event
	ioWG   sync.WaitGroup
}

// New builds a Process in the spawning state. It does not start the
// operating-system process; call Start to do that.
func New(binaryPath string, args []string) *Process {
	return &Process{
		binaryPath: binaryPath,
		args:       args,
		state:      StateSpawning,
		events:     make(chan Event, 16),
	}
}

// State returns the process's current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// BytesProduced reports whether this process has written any stdout
// bytes yet. Callers use this to tell a session that streamed for a
// while and then disconnected apart from one that never produced a
// single byte before failing.
func (p *Process) BytesProduced() bool {
	return p.bytesProduced.Load()
}

// Events returns the channel Start's data and lifecycle events arrive
// on. It is closed after the EventClose event is sent.
func (p *Process) Events() <-chan Event {
	return p.events
}

// Start spawns the operating-system process with stdin closed and
// stdout/stderr piped. If Kill was called before Start runs, the
// process is never spawned — the preemptive kill is observed as an
// immediate transition straight to StateKilled.
func (p *Process) Start(ctx context.Context) error {
	if p.killRequested.Load() {
		p.setState(StateKilled)
		p.closeEvents()
		return nil
	}

	p.cmd = exec.CommandContext(ctx, p.binaryPath, p.args...)
	p.cmd.Stdin = nil

	var err error
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return models.WrapStreamError(models.KindEncoderMissing, "creating encoder stdout pipe", err)
	}
	p.stderr, err = p.cmd.StderrPipe()
	if err != nil {
		return models.WrapStreamError(models.KindEncoderMissing, "creating encoder stderr pipe", err)
	}

	if err := p.cmd.Start(); err != nil {
		return models.WrapStreamError(models.KindEncoderMissing, fmt.Sprintf("starting %s", p.binaryPath), err)
	}

	if p.killRequested.Load() {
		// Lost the race between Kill() and Start(): the process is
		// already forked, so reap it rather than leaving it to run.
		_ = p.cmd.Process.Kill()
	}

	p.setState(StateRunning)

	p.ioWG.Add(2)
	go func() {
		defer p.ioWG.Done()
		p.readStdout()
	}()
	go func() {
		defer p.ioWG.Done()
		p.readStderr()
	}()

	go p.wait()

	return nil
}

// readStdout streams stdout chunks as EventData events until EOF.
func (p *Process) readStdout() {
	buf := make([]byte, 64*1024)
	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			p.bytesProduced.Store(true)
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.events <- Event{Kind: EventData, Data: chunk}
		}
		if err != nil {
			return
		}
	}
}

// readStderr captures the last maxStderrLines of stderr for error
// reporting, using \r as a line delimiter alongside \n since encoders
// commonly emit progress updates that way.
func (p *Process) readStderr() {
	scanner := bufio.NewScanner(p.stderr)
	scanner.Split(scanLinesWithCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.stderrMu.Lock()
		p.stderrLines = append(p.stderrLines, line)
		if len(p.stderrLines) > maxStderrLines {
			p.stderrLines = p.stderrLines[1:]
		}
		p.stderrMu.Unlock()
	}
}

func scanLinesWithCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			advance = i + 1
			for advance < len(data) && (data[advance] == '\r' || data[advance] == '\n') {
				advance++
			}
			return advance, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// StderrLines returns the captured tail of stderr output.
func (p *Process) StderrLines() []string {
	p.stderrMu.Lock()
	defer p.stderrMu.Unlock()
	lines := make([]string, len(p.stderrLines))
	copy(lines, p.stderrLines)
	return lines
}

// wait reaps the process, classifies its exit, and emits the terminal
// event sequence: EventEnd or EventError, always followed by
// EventClose.
func (p *Process) wait() {
	// cmd.Wait must not be called until both pipe readers have seen
	// EOF, so the pipes aren't closed out from under them.
	p.ioWG.Wait()
	err := p.cmd.Wait()

	if p.killRequested.Load() {
		p.setState(StateKilled)
		p.closeEvents()
		return
	}

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		exitCode = -1
	}

	switch {
	case exitCode == 0:
		p.setState(StateCompleted)
		p.events <- Event{Kind: EventEnd}
	case exitCode == 255 && p.bytesProduced.Load():
		// Benign EOF: the encoder produced output before the source
		// ran out and exited 255, which is how it reports a clean
		// end of input rather than a failure.
		p.setState(StateCompleted)
		p.events <- Event{Kind: EventEnd}
	default:
		p.setState(StateErrored)
		detail := fmt.Sprintf("encoder exited %d", exitCode)
		if lines := p.StderrLines(); len(lines) > 0 {
			detail += ": " + strings.Join(lines, "; ")
		}
		p.events <- Event{Kind: EventError, Err: models.NewStreamError(models.KindEncoderCrash, detail)}
	}

	p.closeEvents()
}

func (p *Process) closeEvents() {
	p.events <- Event{Kind: EventClose}
	close(p.events)
}

// Kill transitions the process to StateKilled from any state,
// including spawning (where it prevents the spawn from occurring at
// all). Running processes receive SIGTERM, escalating to SIGKILL if
// they haven't exited within killGrace.
func (p *Process) Kill() {
	p.killRequested.Store(true)

	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state != StateRunning || p.cmd == nil || p.cmd.Process == nil {
		return
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	go func() {
		time.Sleep(killGrace)
		if p.State() == StateRunning {
			_ = p.cmd.Process.Kill()
		}
	}()
}

// Stats reports CPU and memory usage for the running process. Returns
// nil if the process isn't running or gopsutil can't read its stats.
func (p *Process) Stats() *Stats {
	p.mu.Lock()
	running := p.state == StateRunning
	p.mu.Unlock()
	if !running || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}

	proc, err := process.NewProcess(int32(p.cmd.Process.Pid))
	if err != nil {
		return nil
	}

	stats := &Stats{PID: p.cmd.Process.Pid}
	if cpuPercent, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}
	if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
		stats.MemoryRSSBytes = memInfo.RSS
		stats.MemoryRSSMB = float64(memInfo.RSS) / 1024 / 1024
	}
	return stats
}

// Stats is one sample of resource usage for a running encoder process.
type Stats struct {
	PID            int
	CPUPercent     float64
	MemoryRSSBytes uint64
	MemoryRSSMB    float64
}

func (s Stats) String() string {
	return fmt.Sprintf("pid=%d cpu=%.1f%% rss=%.1fMB", s.PID, s.CPUPercent, s.MemoryRSSMB)
}
