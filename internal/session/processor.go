// Package session sequences the per-session pipeline: identity parsing,
// camera checks, timing resolution, metadata generation, file reconciliation,
// and manifest emission. The flow is linear with no retries; any step's
// failure aborts the session and nothing partial is written.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mesoprep/internal/config"
	"mesoprep/internal/history"
	"mesoprep/internal/identity"
	"mesoprep/internal/logging"
	"mesoprep/internal/manifest"
	"mesoprep/internal/metadata"
	"mesoprep/internal/reconcile"
	"mesoprep/internal/services"
	"mesoprep/internal/timing"
	"mesoprep/internal/vocab"
)

// Project names recognized by the external data schema. Codes containing
// "OpenScope" map to the OpenScope project; everything else this rig produces
// belongs to the learning study.
const (
	projectOpenScope = "OpenScope"
	projectLearning  = "Learning mFISH-V1omFISH"
)

// minCameraJSONs is the expected camera sidecar count; fewer is logged but
// tolerated, zero fails the session.
const minCameraJSONs = 3

// lockFileName guards a session directory against concurrent runs.
const lockFileName = ".mesoprep.lock"

// Outcome summarizes a completed run.
type Outcome struct {
	SessionID    string
	SubjectID    string
	ProjectName  string
	Start        time.Time
	End          time.Time
	ManifestPath string
	// Missing maps modality name to the patterns that matched nothing.
	Missing map[string][]string
}

// Processor runs the pipeline for one session at a time.
type Processor struct {
	cfg      *config.Config
	store    *history.Store
	logger   *slog.Logger
	resolver *timing.Resolver
	clock    func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithClock overrides the construction clock used for manifest file names.
func WithClock(clock func() time.Time) Option {
	return func(p *Processor) {
		p.clock = clock
	}
}

// NewProcessor builds a Processor. The history store may be nil, in which
// case runs are not recorded.
func NewProcessor(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		cfg:      cfg,
		store:    store,
		logger:   logging.WithComponent(logger, "session"),
		resolver: timing.NewResolver(cfg.Timing, logger),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for sessionID. The returned error is typed
// (see services) and never panics; callers looping over sessions record each
// failure and continue.
func (p *Processor) Process(ctx context.Context, sessionID, userName string) (*Outcome, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "process", "session id must be set", nil)
	}
	if strings.TrimSpace(userName) == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "process", "user name must be set", nil)
	}

	runID := uuid.NewString()
	logger := p.logger.With(
		logging.String("session_id", sessionID),
		logging.String("user", userName),
		logging.String("run_id", runID),
	)

	var historyID int64
	if p.store != nil {
		id, err := p.store.Begin(ctx, runID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
		historyID = id
	}

	outcome, err := p.process(ctx, logger, sessionID, userName)

	if p.store != nil {
		run := history.Run{}
		status := history.StatusCompleted
		if err != nil {
			status = services.FailureStatus(err)
			run.Error = err.Error()
		} else {
			run.SubjectID = outcome.SubjectID
			run.Project = outcome.ProjectName
			run.ManifestPath = outcome.ManifestPath
		}
		if finishErr := p.store.Finish(ctx, historyID, status, run); finishErr != nil {
			logger.Warn("could not record run outcome", logging.Error(finishErr))
		}
	}

	if err != nil {
		logger.Error("could not process session", logging.Error(err))
		return nil, err
	}
	logger.Info("session prepared for transfer", logging.String("manifest", outcome.ManifestPath))
	return outcome, nil
}

func (p *Processor) process(ctx context.Context, logger *slog.Logger, sessionID, userName string) (*Outcome, error) {
	dataDir := p.cfg.SessionDir(sessionID)
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		return nil, services.Wrap(services.ErrNotFound, "session", "process",
			fmt.Sprintf("session directory %s does not exist", dataDir), nil)
	}

	// One run per session directory at a time.
	lock := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "session", "process",
			fmt.Sprintf("session %s is already being processed", sessionID), nil)
	}
	defer func() { _ = lock.Unlock() }()

	id, err := identity.Find(dataDir)
	if err != nil {
		return nil, err
	}
	logger = logger.With(
		logging.String("subject_id", id.SubjectID),
		logging.String("project_code", id.ProjectCode),
	)
	logger.Info("processing session")

	if err := p.checkCameraJSONs(logger, sessionID); err != nil {
		return nil, err
	}

	start, end, err := p.resolver.Resolve(dataDir)
	if err != nil {
		return nil, err
	}

	projectName := dataSchemaProject(id.ProjectCode)
	platform, err := vocab.NormalizePlatform(p.cfg.Transfer.Platform)
	if err != nil {
		return nil, err
	}

	logger.Info("generating session metadata")
	if _, err := metadata.WriteSession(dataDir, metadata.SessionParams{
		SessionID:      sessionID,
		SubjectID:      id.SubjectID,
		Experimenter:   userName,
		Start:          start,
		End:            end,
		InputSource:    dataDir,
		BehaviorSource: p.cfg.Paths.BehaviorVideoDir,
		Platform:       platform,
	}); err != nil {
		return nil, err
	}
	if _, err := metadata.WriteDataDescription(dataDir, metadata.DescriptionParams{
		SubjectID:     id.SubjectID,
		Modalities:    []vocab.Modality{vocab.ModalityPophys, vocab.ModalityBehaviorVideos, vocab.ModalityBehavior},
		Platform:      platform,
		Investigators: p.cfg.Projects.Investigators[projectName],
		ProjectName:   projectName,
		DataSummary:   id.ProjectCode,
		CreationTime:  start,
	}); err != nil {
		return nil, err
	}

	modalities, missing, err := p.reconcileModalities(logger, sessionID, dataDir)
	if err != nil {
		return nil, err
	}

	logger.Info("generating transfer manifest")
	built, err := manifest.Build(manifest.Params{
		SessionID:            sessionID,
		SubjectID:            id.SubjectID,
		ProjectName:          projectName,
		ProcessorFullName:    userName,
		AcquisitionTime:      start,
		Modalities:           modalities,
		SchemaCandidates:     p.cfg.Transfer.Schemas,
		DataDir:              dataDir,
		ExtraIdentifyingInfo: map[string]string{"ophys_session_id": sessionID},
		Options: manifest.Options{
			Destination:            p.cfg.Transfer.Destination,
			ScheduleTime:           p.cfg.Transfer.ScheduleTime,
			Platform:               p.cfg.Transfer.Platform,
			CapsuleID:              p.cfg.Transfer.CapsuleID,
			Mount:                  p.cfg.Transfer.Mount,
			S3Bucket:               p.cfg.Transfer.S3Bucket,
			ForceCloudSync:         p.cfg.Transfer.ForceCloudSync,
			TransferServiceJobType: p.cfg.Transfer.TransferServiceJobType,
		},
	})
	if err != nil {
		return nil, err
	}

	writer := manifest.NewWriter(p.cfg.Paths.ManifestDir)
	writer.Now = p.clock
	written, err := writer.Write(built)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		SessionID:    sessionID,
		SubjectID:    id.SubjectID,
		ProjectName:  projectName,
		Start:        start,
		End:          end,
		ManifestPath: written,
		Missing:      missing,
	}, nil
}

// checkCameraJSONs verifies the behavior-video capture produced camera
// sidecars for this session before anything heavier runs.
func (p *Processor) checkCameraJSONs(logger *slog.Logger, sessionID string) error {
	pattern := filepath.Join(p.cfg.Paths.BehaviorVideoDir, sessionID+"*.json")
	cameraJSONs, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("glob camera jsons: %w", err)
	}
	if len(cameraJSONs) == 0 {
		return services.Wrap(services.ErrNotFound, "session", "camera check",
			"no camera json files found", nil)
	}
	if len(cameraJSONs) < minCameraJSONs {
		logger.Info("fewer camera jsons than expected", logging.Int("found", len(cameraJSONs)))
	}
	return nil
}

// reconcileModalities resolves each configured modality's patterns to files.
// Behavior videos live in a shared directory and are restricted to this
// session by token matching.
func (p *Processor) reconcileModalities(logger *slog.Logger, sessionID, dataDir string) (map[string][]string, map[string][]string, error) {
	patterns := p.cfg.ModalityPatterns()

	modalities := make(map[string][]string, len(patterns))
	missing := make(map[string][]string)
	for name, modalityPatterns := range patterns {
		base := dataDir
		token := ""
		if name == string(vocab.ModalityBehaviorVideos) {
			base = p.cfg.Paths.BehaviorVideoDir
			token = sessionID
		}
		report, err := reconcile.SearchReport(base, modalityPatterns, token)
		if err != nil {
			return nil, nil, err
		}
		modalities[name] = report.Files
		if len(report.Missing) > 0 {
			missing[name] = report.Missing
			for _, pattern := range report.Missing {
				logger.Warn("pattern matched no files",
					logging.String("modality", name),
					logging.String("pattern", pattern))
			}
		}
	}

	if len(missing) > 0 && p.cfg.Transfer.RequireAllPatterns {
		return nil, nil, services.Wrap(services.ErrValidation, "session", "reconcile",
			fmt.Sprintf("%d modalities have unmatched patterns and require_all_patterns is set", len(missing)), nil)
	}
	return modalities, missing, nil
}

func dataSchemaProject(projectCode string) string {
	if strings.Contains(projectCode, projectOpenScope) {
		return projectOpenScope
	}
	return projectLearning
}
