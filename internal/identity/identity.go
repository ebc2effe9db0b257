// Package identity reads the per-session sidecar file that carries the
// subject and project the acquisition belongs to.
package identity

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mesoprep/internal/services"
)

// SidecarSuffix names the identity file: any file ending in this suffix
// anywhere under the session directory qualifies.
const SidecarSuffix = "platform.json"

// Identity is the read-only session identity parsed from the sidecar file.
type Identity struct {
	SubjectID   string `json:"subject_id"`
	ProjectCode string `json:"project_code"`
}

// Find locates and parses the sidecar identity file under dataDir. The walk
// is lexical, so the first match is deterministic.
func Find(dataDir string) (Identity, error) {
	var sidecar string
	err := filepath.WalkDir(dataDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), SidecarSuffix) {
			sidecar = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, services.Wrap(services.ErrIdentityNotFound, "identity", "find",
				fmt.Sprintf("session directory %s does not exist", dataDir), nil)
		}
		return Identity{}, fmt.Errorf("walk %s: %w", dataDir, err)
	}
	if sidecar == "" {
		return Identity{}, services.Wrap(services.ErrIdentityNotFound, "identity", "find",
			fmt.Sprintf("no *%s found in %s", SidecarSuffix, dataDir), nil)
	}
	return parse(sidecar)
}

func parse(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, fmt.Errorf("read %s: %w", path, err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, services.Wrap(services.ErrValidation, "identity", "parse",
			fmt.Sprintf("%s is not valid JSON", path), err)
	}
	if strings.TrimSpace(id.SubjectID) == "" {
		return Identity{}, services.Wrap(services.ErrValidation, "identity", "parse",
			fmt.Sprintf("%s is missing subject_id", path), nil)
	}
	if strings.TrimSpace(id.ProjectCode) == "" {
		return Identity{}, services.Wrap(services.ErrValidation, "identity", "parse",
			fmt.Sprintf("%s is missing project_code", path), nil)
	}
	return id, nil
}
