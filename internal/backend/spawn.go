package backend

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_spawner.go -package=mocks . Spawner

// ErrSpawnFailed is matched by every SpawnError.
var ErrSpawnFailed = errors.New("failed to spawn command")

// SpawnError reports that an external program could not be started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	if e.Program == "" {
		return fmt.Sprintf("failed to execute command: %v", e.Err)
	}
	return fmt.Sprintf("failed to execute command %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailed, e.Err}
}

// Spawner starts external programs.
type Spawner interface {
	// Spawn starts cmd and returns once the process exists.
	// It must not wait for the process to exit.
	Spawn(cmd Command) error
}

// ProcessSpawner starts real processes and reaps them in the background.
type ProcessSpawner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewProcessSpawner creates a spawner that logs child exits to logger.
func NewProcessSpawner(logger *zap.Logger) *ProcessSpawner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessSpawner{logger: logger}
}

// Spawn starts cmd. Desktop tools often daemonize, so completion is not awaited.
func (s *ProcessSpawner) Spawn(cmd Command) error {
	c := exec.Command(cmd.Program, cmd.Args...)
	if err := c.Start(); err != nil {
		return &SpawnError{Program: cmd.Program, Err: err}
	}

	pid := c.Process.Pid
	s.logger.Debug("Spawned wallpaper command",
		zap.String("program", cmd.Program),
		zap.Int("pid", pid))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := c.Wait(); err != nil {
			s.logger.Warn("Wallpaper command exited with error",
				zap.String("program", cmd.Program),
				zap.Int("pid", pid),
				zap.Error(err))
			return
		}
		s.logger.Debug("Wallpaper command exited",
			zap.String("program", cmd.Program),
			zap.Int("pid", pid))
	}()

	return nil
}

// Wait blocks until every spawned child has exited.
func (s *ProcessSpawner) Wait() {
	s.wg.Wait()
}
