//go:build !windows

package spawn

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in a new process group so the whole tree
// can be signalled at once
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func interruptTree(cmd *exec.Cmd) error {
	return signalTree(cmd, unix.SIGTERM)
}

func killTree(cmd *exec.Cmd) error {
	return signalTree(cmd, unix.SIGKILL)
}

// signalTree signals the process group first and falls back to the single
// process. A process that is already gone is not an error.
func signalTree(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	err := unix.Kill(-pid, sig)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}

	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
