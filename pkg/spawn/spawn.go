// Package spawn starts external commands for click actions and script
// items.
package spawn

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Shell is the interpreter used for command strings.
var Shell = "/bin/sh"

// WaitDelay bounds how long Output waits for pipes to close after its
// context ends.
var WaitDelay = 100 * time.Millisecond

// Detached starts command in its own session and returns immediately. The
// child's output is discarded and it is reaped in the background, so a
// click handler never blocks on it.
func Detached(logger *slog.Logger, command string, env ...string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("spawn: empty command")
	}

	cmd := exec.Command(Shell, "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %q: %w", command, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("detached command exited", "command", command, "error", err)
		}
	}()
	return nil
}

// Output runs command and returns its trimmed stdout. A non-zero exit
// status is an error that includes the first line of stderr. When ctx
// ends the whole process group is killed, children of the shell included.
func Output(ctx context.Context, command string, env ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, Shell, "-c", command)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = WaitDelay

	if err := cmd.Run(); err != nil {
		msg, _, _ := strings.Cut(strings.TrimSpace(stderr.String()), "\n")
		if msg != "" {
			return "", fmt.Errorf("run %q: %w: %s", command, err, msg)
		}
		return "", fmt.Errorf("run %q: %w", command, err)
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}
