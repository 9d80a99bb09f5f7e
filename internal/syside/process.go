package syside

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbsekit/flexo-bridge/internal/logger"
)

var log = logger.ForComponent("syside")

var (
	ErrCheckerNotInstalled = errors.New("checker command not installed")
	ErrCheckerDisabled     = errors.New("checker not configured")
	ErrMaxRestarts         = errors.New("max restart attempts exceeded")
)

// Checker manages the lifecycle of the external language server process
// and the stdio client attached to it.
type Checker struct {
	config  CheckerConfig
	circuit *CircuitBreaker

	cmd      *exec.Cmd
	client   *Client
	rootPath string

	state        atomic.Value
	restartCount int
	startedAt    time.Time
	lastError    error

	mu       sync.RWMutex
	stopOnce sync.Once
}

func NewChecker(config CheckerConfig) *Checker {
	c := &Checker{
		config:  config,
		circuit: NewCircuitBreaker(DefaultCircuitConfig()),
	}
	c.state.Store(StateStopped)
	return c
}

// Enabled reports whether a checker command is configured at all.
func (c *Checker) Enabled() bool {
	return c.config.Command != ""
}

func (c *Checker) Start(ctx context.Context, rootPath string) error {
	if !c.Enabled() {
		return ErrCheckerDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	currentState := c.getState()
	if currentState == StateReady || currentState == StateStarting || currentState == StateInitializing {
		return nil
	}

	if c.restartCount >= c.config.MaxRestarts {
		return ErrMaxRestarts
	}

	if !c.circuit.Allow() {
		return fmt.Errorf("circuit breaker open for %s", c.config.Command)
	}

	path, err := exec.LookPath(c.config.Command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCheckerNotInstalled, c.config.Command)
	}

	log.Info("starting checker", "command", path, "root", rootPath)

	c.state.Store(StateStarting)
	c.rootPath = rootPath
	c.stopOnce = sync.Once{}

	c.cmd = exec.CommandContext(ctx, path, c.config.Args...)
	c.cmd.Dir = rootPath
	c.cmd.Env = os.Environ()

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		c.state.Store(StateError)
		c.lastError = err
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		c.state.Store(StateError)
		c.lastError = err
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := c.cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		c.state.Store(StateError)
		c.lastError = err
		c.circuit.RecordFailure()
		return fmt.Errorf("failed to start %s: %w", c.config.Command, err)
	}

	c.startedAt = time.Now()

	client, err := NewClient(ctx, stdin, stdout, ClientConfig{
		InitTimeout:    c.config.InitTimeout,
		RequestTimeout: c.config.RequestTimeout,
	})
	if err != nil {
		c.killProcess()
		c.state.Store(StateError)
		c.lastError = err
		c.circuit.RecordFailure()
		return fmt.Errorf("failed to create checker client: %w", err)
	}

	c.client = client

	rootURI := "file://" + rootPath
	if err := c.client.Initialize(ctx, rootURI); err != nil {
		c.killProcess()
		c.state.Store(StateError)
		c.lastError = err
		c.circuit.RecordFailure()
		c.restartCount++
		return fmt.Errorf("failed to initialize checker: %w", err)
	}

	c.state.Store(StateReady)
	c.circuit.RecordSuccess()
	return nil
}

// Check validates one document. When no checker is configured the result
// is empty rather than an error, so callers can run unconditionally.
func (c *Checker) Check(ctx context.Context, uri, text string) (*CheckResult, error) {
	if !c.Enabled() {
		return &CheckResult{URI: uri}, nil
	}

	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsReady() {
		return nil, ErrNotInitialized
	}

	result, err := client.Check(ctx, uri, text)
	if err != nil {
		c.circuit.RecordFailure()
		return nil, err
	}

	c.circuit.RecordSuccess()
	return result, nil
}

func (c *Checker) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.getState() == StateStopped {
			return
		}

		log.Info("stopping checker")

		if c.client != nil && c.client.IsReady() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if shutdownErr := c.client.Shutdown(shutdownCtx); shutdownErr != nil {
				err = shutdownErr
			}
			cancel()
			c.client.Close()
		}

		if c.cmd != nil && c.cmd.Process != nil {
			if sigErr := c.cmd.Process.Signal(os.Interrupt); sigErr != nil {
				err = sigErr
			}

			done := make(chan error, 1)
			go func() {
				done <- c.cmd.Wait()
			}()

			select {
			case <-done:
			case <-time.After(3 * time.Second):
				c.cmd.Process.Kill()
				<-done
			}
		}

		c.state.Store(StateStopped)
		c.client = nil
		c.cmd = nil
	})
	return err
}

func (c *Checker) killProcess() {
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	if c.client != nil {
		c.client.Close()
	}
	c.cmd = nil
	c.client = nil
}

func (c *Checker) State() CheckerState {
	return c.getState()
}

func (c *Checker) getState() CheckerState {
	return c.state.Load().(CheckerState)
}

func (c *Checker) CircuitState() CircuitState {
	return c.circuit.State()
}

func (c *Checker) ResetCircuit() {
	c.circuit.Reset()
}

func (c *Checker) IsInstalled() bool {
	if !c.Enabled() {
		return false
	}
	_, err := exec.LookPath(c.config.Command)
	return err == nil
}

func (c *Checker) Command() string {
	return c.config.Command
}
