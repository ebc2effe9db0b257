// Package timing derives the acquisition session window from the sync trace:
// the stimulus trigger line's single rising edge marks the start, its single
// falling edge the end. Zero or multiple edges abort the session rather than
// guessing, since a silently chosen edge pair could put a wrong timestamp in
// a scientific record.
package timing

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mesoprep/internal/config"
	"mesoprep/internal/logging"
	"mesoprep/internal/services"
	"mesoprep/internal/synctrace"
)

// Resolver locates a session's sync trace and extracts the session window.
type Resolver struct {
	cfg    config.Timing
	logger *slog.Logger
}

// NewResolver builds a Resolver from the timing configuration.
func NewResolver(cfg config.Timing, logger *slog.Logger) *Resolver {
	return &Resolver{cfg: cfg, logger: logging.WithComponent(logger, "timing")}
}

// Resolve returns the session start and end times for the session data
// directory.
func (r *Resolver) Resolve(dataDir string) (time.Time, time.Time, error) {
	syncPath, err := r.findSyncFile(dataDir)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	r.logger.Debug("parsing sync trace", logging.String("path", syncPath))

	timeline, err := synctrace.ReadFile(syncPath)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	rising, err := timeline.RisingEdges(r.cfg.TriggerLine, synctrace.UnitSeconds)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	falling, err := timeline.FallingEdges(r.cfg.TriggerLine, synctrace.UnitSeconds)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if len(rising) == 0 || len(falling) == 0 {
		return time.Time{}, time.Time{}, services.Wrap(services.ErrMissingTrigger, "timing", "resolve",
			fmt.Sprintf("could not pull rising or falling edge from line %d in %s", r.cfg.TriggerLine, syncPath), nil)
	}
	if len(rising) > 1 || len(falling) > 1 {
		return time.Time{}, time.Time{}, services.Wrap(services.ErrAmbiguousTrigger, "timing", "resolve",
			fmt.Sprintf("multiple rising or falling edges detected on line %d in %s (%d rising, %d falling)",
				r.cfg.TriggerLine, syncPath, len(rising), len(falling)), nil)
	}

	start := timeline.StartTime().Add(secondsToDuration(rising[0]))
	end := timeline.StartTime().Add(secondsToDuration(falling[0]))
	r.logger.Debug("resolved session window",
		logging.Time("start", start), logging.Time("end", end))
	return start, end, nil
}

// findSyncFile selects the session's sync trace: files matching the sync glob
// whose path does not contain the exclusion token. More than one survivor is
// an error unless the deployment opted into first-match selection.
func (r *Resolver) findSyncFile(dataDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, r.cfg.SyncGlob))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "timing", "find sync file",
			fmt.Sprintf("bad sync glob %q", r.cfg.SyncGlob), err)
	}

	candidates := matches[:0]
	for _, match := range matches {
		if r.cfg.ExcludeToken != "" && strings.Contains(match, r.cfg.ExcludeToken) {
			continue
		}
		candidates = append(candidates, match)
	}
	sort.Strings(candidates)

	switch {
	case len(candidates) == 0:
		return "", services.Wrap(services.ErrNotFound, "timing", "find sync file",
			fmt.Sprintf("no %s sync file in %s", r.cfg.SyncGlob, dataDir), nil)
	case len(candidates) > 1 && !r.cfg.AllowMultipleSyncFiles:
		return "", services.Wrap(services.ErrAmbiguousTrigger, "timing", "find sync file",
			fmt.Sprintf("%d sync candidates in %s; refusing to guess", len(candidates), dataDir), nil)
	case len(candidates) > 1:
		r.logger.Warn("multiple sync candidates; using first in sorted order",
			logging.Int("candidates", len(candidates)),
			logging.String("selected", candidates[0]))
	}
	return candidates[0], nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
