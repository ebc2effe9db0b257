package config

import (
	"fmt"
	"strings"
)

// normalize trims string fields, expands paths, and canonicalizes enum-like
// values before validation runs.
func (c *Config) normalize() error {
	var err error

	pathFields := []struct {
		name  string
		value *string
	}{
		{"paths.acquisition_dir", &c.Paths.AcquisitionDir},
		{"paths.behavior_video_dir", &c.Paths.BehaviorVideoDir},
		{"paths.manifest_dir", &c.Paths.ManifestDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"transfer.destination", &c.Transfer.Destination},
	}
	for _, field := range pathFields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			*field.value = ""
			continue
		}
		if *field.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	c.Timing.SyncGlob = strings.TrimSpace(c.Timing.SyncGlob)
	c.Timing.ExcludeToken = strings.TrimSpace(c.Timing.ExcludeToken)

	c.Transfer.ScheduleTime = strings.TrimSpace(c.Transfer.ScheduleTime)
	c.Transfer.Platform = strings.TrimSpace(c.Transfer.Platform)
	c.Transfer.CapsuleID = strings.TrimSpace(c.Transfer.CapsuleID)
	c.Transfer.Mount = strings.TrimSpace(c.Transfer.Mount)
	c.Transfer.S3Bucket = strings.TrimSpace(c.Transfer.S3Bucket)
	c.Transfer.TransferServiceJobType = strings.TrimSpace(c.Transfer.TransferServiceJobType)

	schemas := make([]string, 0, len(c.Transfer.Schemas))
	for _, schema := range c.Transfer.Schemas {
		if trimmed := strings.TrimSpace(schema); trimmed != "" {
			schemas = append(schemas, trimmed)
		}
	}
	c.Transfer.Schemas = schemas

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
