// Package preflight verifies the environment before a session is processed:
// the directories the pipeline reads from and writes to, the transfer
// destination, and free space for manifests and logs.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"mesoprep/internal/config"
)

// minFreeBytes is the free-space floor for the manifest filesystem. Manifests
// are small; this guards against a full disk swallowing a partial write.
const minFreeBytes = 64 << 20

// Check is the outcome of one readiness probe.
type Check struct {
	Name     string
	Ready    bool
	Required bool
	Detail   string
}

// Run executes every readiness probe against the configuration.
func Run(cfg *config.Config) []Check {
	return []Check{
		dirExists("acquisition directory", cfg.Paths.AcquisitionDir, true),
		dirExists("behavior video directory", cfg.Paths.BehaviorVideoDir, true),
		dirWritable("manifest directory", cfg.Paths.ManifestDir, true),
		dirExists("transfer destination", cfg.Transfer.Destination, true),
		freeSpace("manifest filesystem", cfg.Paths.ManifestDir, false),
	}
}

// Ready reports whether every required check passed.
func Ready(checks []Check) bool {
	for _, check := range checks {
		if check.Required && !check.Ready {
			return false
		}
	}
	return true
}

// FirstFailure returns the first failed required check, if any.
func FirstFailure(checks []Check) (Check, bool) {
	for _, check := range checks {
		if check.Required && !check.Ready {
			return check, true
		}
	}
	return Check{}, false
}

func dirExists(name, path string, required bool) Check {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return Check{Name: name, Required: required, Detail: fmt.Sprintf("%s: %v", path, err)}
	case !info.IsDir():
		return Check{Name: name, Required: required, Detail: path + " is not a directory"}
	default:
		return Check{Name: name, Ready: true, Required: required, Detail: path}
	}
}

func dirWritable(name, path string, required bool) Check {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Check{Name: name, Required: required, Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	probe, err := os.CreateTemp(path, ".preflight-*")
	if err != nil {
		return Check{Name: name, Required: required, Detail: fmt.Sprintf("%s is not writable: %v", path, err)}
	}
	probePath := probe.Name()
	_ = probe.Close()
	_ = os.Remove(probePath)
	return Check{Name: name, Ready: true, Required: required, Detail: path}
}

func freeSpace(name, path string, required bool) Check {
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Clean(path), &stat); err != nil {
		return Check{Name: name, Required: required, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Check{Name: name, Required: required,
			Detail: fmt.Sprintf("only %d bytes free on %s", free, path)}
	}
	return Check{Name: name, Ready: true, Required: required,
		Detail: fmt.Sprintf("%d MiB free", free>>20)}
}
