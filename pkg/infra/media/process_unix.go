//go:build unix

package media

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the tool in its own process group so that
// cancellation also stops any helpers it spawned.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
