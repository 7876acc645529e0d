package vehicle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// RunMode selects what the vehicle boots into after a reset.
type RunMode int

const (
	RunNormal RunMode = iota
	RunSafeMode
	RunFirmwareUpdate
)

func (m RunMode) String() string {
	switch m {
	case RunNormal:
		return "normal"
	case RunSafeMode:
		return "safe_mode"
	case RunFirmwareUpdate:
		return "firmware_update"
	}
	return fmt.Sprintf("run_mode(%d)", int(m))
}

var (
	// ErrReload is returned by Loop.Run for RESET SOFT. The caller starts a
	// fresh loop in the same process.
	ErrReload = errors.New("control loop reload requested")

	// ErrRestart is returned by Loop.Run when the platform accepted a reset
	// but did not terminate the process itself.
	ErrRestart = errors.New("restart requested")
)

// Platform hands the process over to the restart mechanism. A successful
// Reset does not return.
type Platform interface {
	Reset(mode RunMode) error
}

// Exit codes used by ProcessPlatform, for the service supervisor.
const (
	ExitResetNormal   = 10
	ExitResetSafe     = 11
	ExitResetFirmware = 12
)

// ProcessPlatform records the next run mode in a file and exits with a mode
// specific status so the service supervisor restarts the vehicle into it.
type ProcessPlatform struct {
	RunModeFile string
	exit        func(code int)
}

func NewProcessPlatform(runModeFile string) *ProcessPlatform {
	return &ProcessPlatform{RunModeFile: runModeFile, exit: os.Exit}
}

func (p *ProcessPlatform) Reset(mode RunMode) error {
	if p.RunModeFile != "" {
		if err := os.MkdirAll(filepath.Dir(p.RunModeFile), 0o755); err != nil {
			return fmt.Errorf("create run mode dir: %w", err)
		}
		if err := os.WriteFile(p.RunModeFile, []byte(mode.String()+"\n"), 0o644); err != nil {
			return fmt.Errorf("write run mode: %w", err)
		}
	}
	code := ExitResetNormal
	switch mode {
	case RunSafeMode:
		code = ExitResetSafe
	case RunFirmwareUpdate:
		code = ExitResetFirmware
	}
	p.exit(code)
	return nil
}
