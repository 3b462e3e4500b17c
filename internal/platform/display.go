package platform

import (
	"fmt"
	"os/exec"
	"runtime"
)

// DisplayProcess is the loosely coupled external visualization process. It
// polls the snapshot file and receives nothing else from the trainer: no
// acknowledgment, no backpressure, no shared memory.
type DisplayProcess struct {
	cmd *exec.Cmd
}

// LaunchDisplay starts the visualization process pointed at the snapshot
// file. On hosts with no launch command the process is silently skipped and
// a nil handle is returned.
func LaunchDisplay(snapshotPath string) (*DisplayProcess, error) {
	name, args, ok := displayCommand(runtime.GOOS, snapshotPath)
	if !ok {
		return nil, nil
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start display process: %w", err)
	}
	return &DisplayProcess{cmd: cmd}, nil
}

func displayCommand(goos, snapshotPath string) (string, []string, bool) {
	switch goos {
	case "windows":
		return "python", []string{"display_progress.py", "-f", snapshotPath}, true
	case "linux":
		return "python3", []string{"display_progress.py", "-f", snapshotPath}, true
	default:
		return "", nil, false
	}
}

// Kill forcibly terminates the process. Safe on a nil handle.
func (d *DisplayProcess) Kill() {
	if d == nil || d.cmd == nil || d.cmd.Process == nil {
		return
	}
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
}
