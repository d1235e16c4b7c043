package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/garrettladley/minimon/internal/procutil"
	"github.com/garrettladley/minimon/internal/xslog"
)

type ExecConfig struct {
	Command []string
	Dir     string
	// Addr is probed over TCP to decide liveness.
	Addr string
	// Match locates copies of the process this supervisor did not start.
	Match       string
	StopTimeout time.Duration
	KillTimeout time.Duration
	Output      io.Writer
	Logger      *slog.Logger
}

// ExecProcess runs a command and treats an accepting TCP port as liveness.
type ExecProcess struct {
	cfg ExecConfig

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

var _ Process = (*ExecProcess)(nil)

func NewExecProcess(cfg ExecConfig) (*ExecProcess, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("proxy command is empty")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = 5 * time.Second
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ExecProcess{cfg: cfg}, nil
}

func (p *ExecProcess) IsRunning(ctx context.Context) bool {
	const probeTimeout = time.Second

	d := net.Dialer{Timeout: probeTimeout}
	conn, err := d.DialContext(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Start spawns the command. The child outlives ctx; only Stop ends it.
func (p *ExecProcess) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.Command(p.cfg.Command[0], p.cfg.Command[1:]...)
	cmd.Dir = p.cfg.Dir
	cmd.Stdout = p.cfg.Output
	cmd.Stderr = p.cfg.Output
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning %v: %w", p.cfg.Command, err)
	}

	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		p.cfg.Logger.Info("proxy exited",
			xslog.PID(cmd.Process.Pid),
			xslog.Error(err),
		)
		close(done)
	}()

	p.cmd = cmd
	p.done = done
	p.cfg.Logger.InfoContext(ctx, "started proxy",
		xslog.PID(cmd.Process.Pid),
		xslog.Command(p.cfg.Command),
	)
	return nil
}

// Stop terminates the child this process started: SIGTERM, then a kill after
// StopTimeout. When there is no child, or the port still answers once the
// child is gone, every process whose command line contains Match is stopped.
func (p *ExecProcess) Stop(ctx context.Context) error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.cmd, p.done = nil, nil
	p.mu.Unlock()

	if cmd != nil {
		if err := p.stopChild(ctx, cmd, done); err != nil {
			return err
		}
		if !p.IsRunning(ctx) {
			return nil
		}
		p.cfg.Logger.WarnContext(ctx, "proxy port still answering after stop",
			xslog.Addr(p.cfg.Addr),
		)
	}
	return p.stopMatching(ctx)
}

func (p *ExecProcess) stopChild(ctx context.Context, cmd *exec.Cmd, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	default:
	}

	if err := procutil.GracefulTerminate(cmd.Process); err != nil {
		p.cfg.Logger.WarnContext(ctx, "failed to signal proxy", xslog.Error(err))
	}

	t := time.NewTimer(p.cfg.StopTimeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	p.cfg.Logger.WarnContext(ctx, "proxy did not exit, killing", xslog.PID(cmd.Process.Pid))
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing proxy: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ExecProcess) stopMatching(ctx context.Context) error {
	if p.cfg.Match == "" {
		return nil
	}
	pids, err := procutil.FindByCommandLine(p.cfg.Match)
	if err != nil {
		return fmt.Errorf("finding %q: %w", p.cfg.Match, err)
	}

	var errs []error
	for _, pid := range pids {
		p.cfg.Logger.InfoContext(ctx, "stopping unmanaged proxy", xslog.PID(pid))
		if err := procutil.TerminateByPID(pid); err != nil {
			errs = append(errs, fmt.Errorf("terminating %d: %w", pid, err))
			continue
		}
		if !waitExit(ctx, pid, p.cfg.KillTimeout) {
			if err := procutil.KillByPID(pid); err != nil {
				errs = append(errs, fmt.Errorf("killing %d: %w", pid, err))
			}
		}
	}
	return errors.Join(errs...)
}

func waitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	const pollInterval = 100 * time.Millisecond

	deadline := time.Now().Add(timeout)
	for procutil.IsProcessAlive(pid) {
		if !time.Now().Before(deadline) {
			return false
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return false
		}
	}
	return true
}
