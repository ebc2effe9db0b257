// Package metadata emits the standardized session and data-description
// documents the transfer manifest references as schemas. Only the document
// shape is produced here; full schema validation belongs to the external
// metadata tooling.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mesoprep/internal/services"
	"mesoprep/internal/vocab"
)

const (
	// SessionFile is the session metadata document name.
	SessionFile = "session.json"
	// DataDescriptionFile is the data description document name.
	DataDescriptionFile = "data_description.json"

	institutionName         = "Allen Institute for Neural Dynamics"
	institutionAbbreviation = "AIND"
	funderAbbreviation      = "AI"
)

// timeLayout keeps date/time precision to the second on the wire.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// SessionParams describes one acquisition session.
type SessionParams struct {
	SessionID      string
	SubjectID      string
	Experimenter   string
	Start          time.Time
	End            time.Time
	InputSource    string
	BehaviorSource string
	Platform       vocab.Platform
}

// DescriptionParams describes the dataset for the data description document.
type DescriptionParams struct {
	SubjectID     string
	Modalities    []vocab.Modality
	Platform      vocab.Platform
	Investigators []string
	ProjectName   string
	DataSummary   string
	CreationTime  time.Time
}

type pidName struct {
	Name string `json:"name"`
}

type organization struct {
	Name         string `json:"name,omitempty"`
	Abbreviation string `json:"abbreviation"`
}

type funding struct {
	Funder organization `json:"funder"`
}

type modalityEntry struct {
	Abbreviation string `json:"abbreviation"`
}

type sessionDoc struct {
	SessionID            string   `json:"session_id"`
	SubjectID            string   `json:"subject_id"`
	ExperimenterFullName []string `json:"experimenter_full_name"`
	SessionStartTime     string   `json:"session_start_time"`
	SessionEndTime       string   `json:"session_end_time"`
	SessionType          string   `json:"session_type"`
	RigID                string   `json:"rig_id"`
	InputSource          string   `json:"input_source"`
	BehaviorSource       string   `json:"behavior_source"`
}

type dataDescriptionDoc struct {
	Modality      []modalityEntry `json:"modality"`
	Platform      modalityEntry   `json:"platform"`
	SubjectID     string          `json:"subject_id"`
	CreationTime  string          `json:"creation_time"`
	Institution   organization    `json:"institution"`
	Investigators []pidName       `json:"investigators"`
	FundingSource []funding       `json:"funding_source"`
	ProjectName   string          `json:"project_name"`
	DataSummary   string          `json:"data_summary"`
}

// WriteSession writes session.json into dir and returns its path.
func WriteSession(dir string, p SessionParams) (string, error) {
	if p.SessionID == "" || p.SubjectID == "" {
		return "", services.Wrap(services.ErrValidation, "metadata", "session",
			"session id and subject id must be set", nil)
	}
	if !p.End.After(p.Start) {
		return "", services.Wrap(services.ErrValidation, "metadata", "session",
			fmt.Sprintf("session end %s is not after start %s", p.End.Format(timeLayout), p.Start.Format(timeLayout)), nil)
	}
	doc := sessionDoc{
		SessionID:            p.SessionID,
		SubjectID:            p.SubjectID,
		ExperimenterFullName: []string{p.Experimenter},
		SessionStartTime:     p.Start.Truncate(time.Second).Format(timeLayout),
		SessionEndTime:       p.End.Truncate(time.Second).Format(timeLayout),
		SessionType:          string(p.Platform),
		RigID:                hostnameOrUnknown(),
		InputSource:          p.InputSource,
		BehaviorSource:       p.BehaviorSource,
	}
	return writeDoc(filepath.Join(dir, SessionFile), doc)
}

// WriteDataDescription writes data_description.json into dir and returns its
// path.
func WriteDataDescription(dir string, p DescriptionParams) (string, error) {
	if p.ProjectName == "" {
		return "", services.Wrap(services.ErrValidation, "metadata", "data description",
			"project name must be set", nil)
	}
	if len(p.Modalities) == 0 {
		return "", services.Wrap(services.ErrValidation, "metadata", "data description",
			"at least one modality is required", nil)
	}

	modalities := make([]modalityEntry, 0, len(p.Modalities))
	for _, m := range p.Modalities {
		modalities = append(modalities, modalityEntry{Abbreviation: string(m)})
	}
	investigators := make([]pidName, 0, len(p.Investigators))
	for _, name := range p.Investigators {
		investigators = append(investigators, pidName{Name: name})
	}

	doc := dataDescriptionDoc{
		Modality:     modalities,
		Platform:     modalityEntry{Abbreviation: string(p.Platform)},
		SubjectID:    p.SubjectID,
		CreationTime: p.CreationTime.Truncate(time.Second).Format(timeLayout),
		Institution: organization{
			Name:         institutionName,
			Abbreviation: institutionAbbreviation,
		},
		Investigators: investigators,
		FundingSource: []funding{{Funder: organization{Abbreviation: funderAbbreviation}}},
		ProjectName:   p.ProjectName,
		DataSummary:   p.DataSummary,
	}
	return writeDoc(filepath.Join(dir, DataDescriptionFile), doc)
}

func writeDoc(path string, doc any) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
