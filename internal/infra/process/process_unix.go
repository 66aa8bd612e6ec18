//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

func SetupGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// KillGroup kills the process and any children it spawned.
func KillGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGKILL)
}

func Suspend(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGSTOP)
}

func Continue(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGCONT)
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	// The process may already have exited.
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
