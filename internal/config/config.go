package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	AcquisitionDir   string `toml:"acquisition_dir"`
	BehaviorVideoDir string `toml:"behavior_video_dir"`
	ManifestDir      string `toml:"manifest_dir"`
	LogDir           string `toml:"log_dir"`
}

// Timing contains sync-trace discovery and trigger-line settings.
type Timing struct {
	// TriggerLine is the digital line whose rising/falling edges mark
	// stimulus start and end.
	TriggerLine int `toml:"trigger_line"`
	// SyncGlob selects candidate sync files inside the session directory.
	SyncGlob string `toml:"sync_glob"`
	// ExcludeToken drops candidates whose path contains this token
	// (full-field recordings share the sync extension).
	ExcludeToken string `toml:"exclude_token"`
	// AllowMultipleSyncFiles restores first-match selection when more than
	// one candidate remains. Off by default: a wrong sync file silently
	// shifts every timestamp in the record.
	AllowMultipleSyncFiles bool `toml:"allow_multiple_sync_files"`
}

// Modalities maps each supported modality to its glob patterns. Patterns
// without a slash match file names; patterns with a slash match trailing path
// components.
type Modalities struct {
	Pophys         []string `toml:"pophys"`
	Behavior       []string `toml:"behavior"`
	BehaviorVideos []string `toml:"behavior_videos"`
}

// Transfer contains the watchdog manifest options.
type Transfer struct {
	Destination            string   `toml:"destination"`
	ScheduleTime           string   `toml:"schedule_time"`
	Platform               string   `toml:"platform"`
	CapsuleID              string   `toml:"capsule_id"`
	Mount                  string   `toml:"mount"`
	S3Bucket               string   `toml:"s3_bucket"`
	ForceCloudSync         bool     `toml:"force_cloud_sync"`
	TransferServiceJobType string   `toml:"transfer_service_job_type"`
	Schemas                []string `toml:"schemas"`
	// RequireAllPatterns upgrades empty glob matches from a logged warning
	// to a fatal validation error.
	RequireAllPatterns bool `toml:"require_all_patterns"`
}

// Projects contains per-project metadata used when generating the data
// description document.
type Projects struct {
	Investigators map[string][]string `toml:"investigators"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mesoprep.
//
// Configuration sections by subsystem:
//   - Paths: acquisition, behavior-video, manifest, and log directories
//   - Timing: sync file discovery and the stimulus trigger line
//   - Modalities: modality name to glob pattern lists
//   - Transfer: watchdog manifest fields and schema list
//   - Projects: investigator rosters per data-schema project
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Timing     Timing     `toml:"timing"`
	Modalities Modalities `toml:"modalities"`
	Transfer   Transfer   `toml:"transfer"`
	Projects   Projects   `toml:"projects"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mesoprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mesoprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes to. The
// acquisition and behavior-video directories are produced by the instrument
// and are never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ManifestDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SessionDir returns the acquisition directory for the given session.
func (c *Config) SessionDir(sessionID string) string {
	return filepath.Join(c.Paths.AcquisitionDir, sessionID)
}

// HistoryDBPath returns the location of the run-history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// ModalityPatterns returns the configured glob patterns keyed by canonical
// modality abbreviation.
func (c *Config) ModalityPatterns() map[string][]string {
	return map[string][]string{
		"pophys":          append([]string(nil), c.Modalities.Pophys...),
		"behavior":        append([]string(nil), c.Modalities.Behavior...),
		"behavior-videos": append([]string(nil), c.Modalities.BehaviorVideos...),
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
