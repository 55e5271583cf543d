// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultShellTimeout bounds a recovery command when Shell.Timeout is
// zero.
const DefaultShellTimeout = 10 * time.Second

// Shell is a command line executed with sh -c.
type Shell struct {
	// Command is passed verbatim to sh -c.
	Command string

	// Timeout bounds the whole run. Zero means DefaultShellTimeout.
	Timeout time.Duration

	// Stdout and Stderr default to the bridge's own streams so that
	// restart scripts log alongside it.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the command and waits for it. A non-zero exit status,
// a timeout, or a start failure is returned as an error. On timeout or
// cancellation the process group receives SIGKILL, so children the
// script spawned (adb, emulator wrappers) do not linger.
func (s Shell) Run(ctx context.Context) error {
	if s.Command == "" {
		return errors.New("empty command")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", s.Command)
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	// Grandchildren holding the output pipes must not stall Wait.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("command timed out after %s: %s", timeout, s.Command)
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return fmt.Errorf("command failed with code %d: %s", exitError.ExitCode(), s.Command)
	}
	return fmt.Errorf("running %q: %w", s.Command, err)
}
