//go:build windows

package proc

import "os/exec"

// setSysProcAttr is a no-op on Windows; Setpgid does not exist there.
func setSysProcAttr(cmd *exec.Cmd) {}

// terminateProcess kills the child. Windows has no SIGTERM, so graceful
// termination and force kill collapse into the same operation.
func terminateProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// forceKillProcess kills the child.
func forceKillProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
