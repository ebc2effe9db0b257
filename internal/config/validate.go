package config

import (
	"errors"
	"fmt"
	"time"

	"mesoprep/internal/vocab"
)

// Validate ensures the configuration is usable. A malformed configuration
// fails here, at load time, rather than mid-pipeline.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateModalities(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.AcquisitionDir == "" {
		return errors.New("paths.acquisition_dir must be set")
	}
	if c.Paths.BehaviorVideoDir == "" {
		return errors.New("paths.behavior_video_dir must be set")
	}
	if c.Paths.ManifestDir == "" {
		return errors.New("paths.manifest_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Timing.TriggerLine < 0 {
		return errors.New("timing.trigger_line must be >= 0")
	}
	if c.Timing.SyncGlob == "" {
		return errors.New("timing.sync_glob must be set")
	}
	return nil
}

func (c *Config) validateModalities() error {
	if len(c.Modalities.Pophys) == 0 && len(c.Modalities.Behavior) == 0 && len(c.Modalities.BehaviorVideos) == 0 {
		return errors.New("modalities: at least one modality must configure patterns")
	}
	for name, patterns := range c.ModalityPatterns() {
		for _, pattern := range patterns {
			if pattern == "" {
				return fmt.Errorf("modalities.%s contains an empty pattern", name)
			}
		}
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if c.Transfer.Destination == "" {
		return errors.New("transfer.destination must be set")
	}
	if _, err := vocab.NormalizePlatform(c.Transfer.Platform); err != nil {
		return fmt.Errorf("transfer.platform: %w", err)
	}
	if c.Transfer.ScheduleTime != "" {
		if _, err := time.Parse("15:04:05", c.Transfer.ScheduleTime); err != nil {
			return fmt.Errorf("transfer.schedule_time must be HH:MM:SS: %w", err)
		}
	}
	if len(c.Transfer.Schemas) == 0 {
		return errors.New("transfer.schemas must list at least one schema file")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
