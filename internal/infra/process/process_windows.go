//go:build windows

package process

import (
	"errors"
	"os/exec"
)

var errSuspendUnsupported = errors.New("suspending capture is not supported on windows")

func SetupGroup(_ *exec.Cmd) {}

func KillGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func Suspend(_ *exec.Cmd) error {
	return errSuspendUnsupported
}

func Continue(_ *exec.Cmd) error {
	return errSuspendUnsupported
}
