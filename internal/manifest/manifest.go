// Package manifest assembles and writes the transfer manifest consumed by the
// external watchdog transfer service. Field names and types are the wire
// contract with that consumer; validation is all-or-nothing and happens at
// construction time so no partial manifest is ever written.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mesoprep/internal/services"
	"mesoprep/internal/vocab"
)

// acquisitionTimeLayout keeps the acquisition timestamp at second resolution
// on the wire.
const acquisitionTimeLayout = "2006-01-02 15:04:05"

// Manifest is the watchdog transfer manifest. YAML keys are the wire
// contract and must be preserved exactly.
type Manifest struct {
	Name                   string              `yaml:"name"`
	Platform               string              `yaml:"platform"`
	SubjectID              int                 `yaml:"subject_id"`
	AcquisitionDatetime    string              `yaml:"acquisition_datetime"`
	ScheduleTime           string              `yaml:"schedule_time,omitempty"`
	Destination            string              `yaml:"destination"`
	CapsuleID              string              `yaml:"capsule_id,omitempty"`
	Mount                  string              `yaml:"mount,omitempty"`
	Modalities             map[string][]string `yaml:"modalities"`
	Schemas                []string            `yaml:"schemas"`
	ProjectName            string              `yaml:"project_name"`
	ProcessorFullName      string              `yaml:"processor_full_name"`
	ExtraIdentifyingInfo   map[string]string   `yaml:"extra_identifying_info,omitempty"`
	S3Bucket               string              `yaml:"s3_bucket,omitempty"`
	ForceCloudSync         bool                `yaml:"force_cloud_sync"`
	TransferServiceJobType string              `yaml:"transfer_service_job_type,omitempty"`
}

// Options carries the deployment-wide transfer settings.
type Options struct {
	Destination            string
	ScheduleTime           string
	Platform               string
	CapsuleID              string
	Mount                  string
	S3Bucket               string
	ForceCloudSync         bool
	TransferServiceJobType string
}

// Params carries everything a single session contributes to its manifest.
type Params struct {
	SessionID            string
	SubjectID            string
	ProjectName          string
	ProcessorFullName    string
	AcquisitionTime      time.Time
	Modalities           map[string][]string
	SchemaCandidates     []string
	DataDir              string
	ExtraIdentifyingInfo map[string]string
	Options              Options
}

// Build constructs a validated manifest. All controlled-vocabulary,
// existence, and type checks happen here, before anything is written.
func Build(p Params) (*Manifest, error) {
	if strings.TrimSpace(p.SessionID) == "" {
		return nil, buildErr("session id must be set", nil)
	}
	if strings.TrimSpace(p.ProjectName) == "" {
		return nil, buildErr("project name must be set", nil)
	}
	if strings.TrimSpace(p.ProcessorFullName) == "" {
		return nil, buildErr("processor full name must be set", nil)
	}
	if p.AcquisitionTime.IsZero() {
		return nil, buildErr("acquisition time must be set", nil)
	}

	subject, err := strconv.Atoi(strings.TrimSpace(p.SubjectID))
	if err != nil || subject <= 0 {
		return nil, buildErr(fmt.Sprintf("subject id %q is not a positive integer", p.SubjectID), nil)
	}

	platform, err := vocab.NormalizePlatform(p.Options.Platform)
	if err != nil {
		return nil, err
	}

	modalities := make(map[string][]string, len(p.Modalities))
	for name, files := range p.Modalities {
		canonical, err := vocab.NormalizeModality(name)
		if err != nil {
			return nil, err
		}
		if _, dup := modalities[string(canonical)]; dup {
			return nil, buildErr(fmt.Sprintf("modality %q appears more than once after normalization", name), nil)
		}
		sorted := append([]string(nil), files...)
		sort.Strings(sorted)
		modalities[string(canonical)] = sorted
	}

	if err := requireDir("destination", p.Options.Destination); err != nil {
		return nil, err
	}

	schemas, err := resolveSchemas(p.SchemaCandidates, p.DataDir)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Name:                   fmt.Sprintf("%s_%s", p.SessionID, uuid.NewString()[:8]),
		Platform:               string(platform),
		SubjectID:              subject,
		AcquisitionDatetime:    p.AcquisitionTime.Truncate(time.Second).Format(acquisitionTimeLayout),
		ScheduleTime:           p.Options.ScheduleTime,
		Destination:            p.Options.Destination,
		CapsuleID:              p.Options.CapsuleID,
		Mount:                  p.Options.Mount,
		Modalities:             modalities,
		Schemas:                schemas,
		ProjectName:            p.ProjectName,
		ProcessorFullName:      p.ProcessorFullName,
		ExtraIdentifyingInfo:   p.ExtraIdentifyingInfo,
		S3Bucket:               p.Options.S3Bucket,
		ForceCloudSync:         p.Options.ForceCloudSync,
		TransferServiceJobType: p.Options.TransferServiceJobType,
	}, nil
}

// resolveSchemas applies the schema lookup rule: an entry that exists as a
// file is used verbatim; anything else is expected inside the session's data
// directory. Every resolved path must exist.
func resolveSchemas(candidates []string, dataDir string) ([]string, error) {
	schemas := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		resolved := candidate
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			resolved = filepath.Join(dataDir, candidate)
		}
		info, err := os.Stat(resolved)
		if err != nil || info.IsDir() {
			return nil, buildErr(fmt.Sprintf("schema %q not found (looked at %s)", candidate, resolved), nil)
		}
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return nil, fmt.Errorf("resolve schema path %q: %w", resolved, err)
		}
		schemas = append(schemas, abs)
	}
	return schemas, nil
}

func requireDir(field, path string) error {
	if strings.TrimSpace(path) == "" {
		return buildErr(field+" must be set", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return buildErr(fmt.Sprintf("%s %s does not exist", field, path), nil)
	}
	if !info.IsDir() {
		return buildErr(fmt.Sprintf("%s %s is not a directory", field, path), nil)
	}
	return nil
}

func buildErr(message string, err error) error {
	return services.Wrap(services.ErrValidation, "manifest", "build", message, err)
}
