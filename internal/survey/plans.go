package survey

import (
	"os"
	"path/filepath"

	"github.com/survey-ops/surveyor/internal/config"
)

const opsPlansDir = "/opt/astrobee/ops/gds/plans/"

// PlansDir locates the directory holding plan files. The config override
// wins; otherwise the standard install location, the $ASTROBEE_OPS tree, and
// the ground-station symlink are probed in order. Returns "" when no
// location exists.
func PlansDir(cfg *config.Config) string {
	if cfg.Run.PlansDir != "" {
		return cfg.Run.PlansDir
	}

	if _, err := os.Stat(opsPlansDir); err == nil {
		return opsPlansDir
	}

	if ops := os.Getenv("ASTROBEE_OPS"); ops != "" {
		return filepath.Join(ops, "gds", "plans")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	symlink := filepath.Join(home, "gds", "latest", "ControlStationConfig", "IssWorld")
	if target, err := filepath.EvalSymlinks(symlink); err == nil {
		return filepath.Join(target, "..", "..", "plans")
	}
	return ""
}
