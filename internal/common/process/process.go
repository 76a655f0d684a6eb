// File path: internal/common/process/process.go
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/Katral_insight/internal/common"
)

// ServiceConfig describes a helper process the server launches and stops
// with itself, such as a local ChromaDB.
type ServiceConfig struct {
	Name          string
	Command       string
	Args          []string
	Env           []string
	WorkDir       string
	ReadyURL      string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
	StopTimeout   time.Duration
	Logger        *slog.Logger
}

// ManagedService is a running helper process.
type ManagedService struct {
	cfg    ServiceConfig
	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	mu      sync.RWMutex
	waitErr error
}

// ParseCommand splits a command line such as CHROMA_COMMAND into the binary
// and its arguments. Quoting is not interpreted.
func ParseCommand(line string) (string, []string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errors.New("process: empty command")
	}
	return fields[0], fields[1:], nil
}

// Start launches cfg.Command, forwards its output to the logger and blocks
// until ReadyURL answers with a 2xx status.
func Start(ctx context.Context, cfg ServiceConfig) (*ManagedService, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("process: command required")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = filepath.Base(cfg.Command)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = common.Logger()
	}
	logger = logger.With("component", "service/"+strings.ToLower(cfg.Name))
	logger.Info("process: launching service", "service", cfg.Name, "command", cfg.Command, "args", strings.Join(cfg.Args, " "))

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.WorkDir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe %s: %w", cfg.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe %s: %w", cfg.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", cfg.Name, err)
	}

	svc := &ManagedService{cfg: cfg, cmd: cmd, logger: logger, done: make(chan struct{})}
	var streams sync.WaitGroup
	streams.Add(2)
	go svc.forward(&streams, stdout, "stdout", slog.LevelInfo)
	go svc.forward(&streams, stderr, "stderr", slog.LevelWarn)
	go func() {
		// Wait must not run before the pipes are drained.
		streams.Wait()
		err := cmd.Wait()
		svc.mu.Lock()
		svc.waitErr = err
		svc.mu.Unlock()
		close(svc.done)
	}()

	if err := svc.waitForReady(ctx); err != nil {
		_ = svc.Stop(context.Background())
		return nil, err
	}
	logger.Info("process: service ready", "service", cfg.Name, "url", cfg.ReadyURL)
	return svc, nil
}

func (s *ManagedService) forward(wg *sync.WaitGroup, pipe io.Reader, stream string, level slog.Level) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.logger.Log(context.Background(), level, scanner.Text(), "stream", stream)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Warn("process: log stream error", "stream", stream, "error", err)
	}
}

// Done is closed once the process has exited.
func (s *ManagedService) Done() <-chan struct{} {
	return s.done
}

// Stop interrupts the process and kills it when it outlives StopTimeout.
func (s *ManagedService) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case <-s.done:
		return s.exitErr()
	default:
	}
	s.logger.Info("process: stopping service", "service", s.cfg.Name)
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("process: interrupt failed", "service", s.cfg.Name, "error", err)
	}
	stopTimeout := s.cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return s.exitErr()
	case <-timer.C:
		s.logger.Warn("process: forcing service kill", "service", s.cfg.Name)
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("process: kill %s: %w", s.cfg.Name, err)
		}
		<-s.done
		return s.exitErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ManagedService) waitForReady(ctx context.Context) error {
	cfg := s.cfg
	if strings.TrimSpace(cfg.ReadyURL) == "" {
		return nil
	}
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 30 * time.Second
	}
	interval := cfg.ReadyInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	client := &http.Client{Timeout: 2 * time.Second}
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-readyCtx.Done():
			if lastErr == nil {
				lastErr = readyCtx.Err()
			}
			return fmt.Errorf("process: %s not ready after %s: %w", cfg.Name, readyTimeout, lastErr)
		case <-s.done:
			return fmt.Errorf("process: %s exited before reporting ready: %v", cfg.Name, s.waitError())
		case <-ticker.C:
			lastErr = probe(readyCtx, client, cfg.ReadyURL)
			if lastErr == nil {
				return nil
			}
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *ManagedService) waitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.waitErr
}

// exitErr treats exits caused by our own interrupt or kill as clean.
func (s *ManagedService) exitErr() error {
	err := s.waitError()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}
	return err
}

// BinaryPath resolves an executable using PATH.
func BinaryPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("process: binary name required")
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("process: locate %s: %w", name, err)
	}
	return filepath.Clean(path), nil
}
