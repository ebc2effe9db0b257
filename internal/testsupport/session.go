package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"mesoprep/internal/config"
	"mesoprep/internal/synctrace"
)

// SessionSpec describes the dummy session to generate.
type SessionSpec struct {
	SessionID   string
	SubjectID   string
	ProjectCode string
	// SyncStart is the sync trace's wall-clock reference start.
	SyncStart time.Time
	// RisingSecond / FallingSecond are the trigger-line edge offsets.
	RisingSecond  float64
	FallingSecond float64
}

// WriteDummySession populates the acquisition and behavior-video directories
// with a session tree matching the real mesoscope layout, including the
// sidecar identity file, a synthetic sync trace, behavior videos for this and
// sibling sessions, and camera JSONs.
func WriteDummySession(t testing.TB, cfg *config.Config, spec SessionSpec) string {
	t.Helper()

	dataDir := cfg.SessionDir(spec.SessionID)
	for _, name := range acquisitionFiles(spec.SessionID) {
		touch(t, filepath.Join(dataDir, name))
	}

	// Sidecar identity with actual data.
	platform := map[string]string{
		"subject_id":   spec.SubjectID,
		"project_code": spec.ProjectCode,
	}
	data, err := json.Marshal(platform)
	if err != nil {
		t.Fatalf("marshal platform json: %v", err)
	}
	sidecar := filepath.Join(dataDir, spec.SessionID+"_platform.json")
	if err := os.WriteFile(sidecar, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", sidecar, err)
	}

	WriteSyncTrace(t, filepath.Join(dataDir, spec.SessionID+"_sync.h5"), spec)

	// Behavior videos for this session plus sibling sessions that must be
	// ignored by token matching.
	writeBehaviorFiles(t, cfg.Paths.BehaviorVideoDir, spec.SessionID)
	if id, err := strconv.Atoi(spec.SessionID); err == nil {
		for i := 1; i <= 3; i++ {
			writeBehaviorFiles(t, cfg.Paths.BehaviorVideoDir, strconv.Itoa(id-1000000+i))
		}
	}

	return dataDir
}

// WriteSyncTrace writes a synthetic sync trace with a single rising/falling
// edge pair on the configured trigger line (line 5, matching defaults).
func WriteSyncTrace(t testing.TB, path string, spec SessionSpec) {
	t.Helper()
	const rate = 100000.0
	rec := synctrace.Recording{
		StartTime:  spec.SyncStart,
		SampleRate: rate,
		LineCount:  32,
		Events: []synctrace.Event{
			{Sample: uint64(spec.RisingSecond * rate), State: 1 << 5},
			{Sample: uint64(spec.FallingSecond * rate), State: 0},
		},
	}
	if err := rec.WriteFile(path); err != nil {
		t.Fatalf("write sync trace %s: %v", path, err)
	}
}

func acquisitionFiles(sessionID string) []string {
	return []string{
		sessionID + ".html",
		sessionID + "_averaged_depth.tiff",
		sessionID + "_averaged_surface.tiff",
		sessionID + "_local_z_stack0.tiff",
		sessionID + "_local_z_stack1.tiff",
		sessionID + "_reticle.tif",
		sessionID + "_stim.pkl",
		sessionID + "_stim_table.csv",
		sessionID + "_surface.roi",
		sessionID + "_timeseries.roi",
		sessionID + "_timeseries.tiff",
		sessionID + "_timeseries_Motion_00001.csv",
		sessionID + "_timeseries_Motion_Corrected_00001.csv",
		sessionID + "_vasculature.tif",
		filepath.Join("parent_session_depth_images", "19000001_depth.tif"),
		filepath.Join("parent_session_surface_images", "19000001_surface.tif"),
		filepath.Join("sorted_local_z_stacks", sessionID+"_local_z_stack0_reg_ch_1.tif"),
		filepath.Join("sorted_local_z_stacks", sessionID+"_local_z_stack0_reg_ch_2.tif"),
	}
}

func writeBehaviorFiles(t testing.TB, dir, sessionID string) {
	t.Helper()
	for _, camera := range []string{"Behavior", "Face", "Eye", "Nose"} {
		touch(t, filepath.Join(dir, fmt.Sprintf("%s_%s_20250615T120000.mp4", sessionID, camera)))
		touch(t, filepath.Join(dir, fmt.Sprintf("%s_%s_20250615T120000.json", sessionID, camera)))
	}
}

func touch(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}
