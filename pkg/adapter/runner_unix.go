//go:build unix

package adapter

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the child in its own process group and makes
// context cancellation kill the whole group, so tools that fork helpers do
// not leave them behind.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// A negative pid addresses the process group.
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
		return nil
	}
}
