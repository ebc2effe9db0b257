package preflight_test

import (
	"os"
	"testing"

	"mesoprep/internal/preflight"
	"mesoprep/internal/testsupport"
)

func TestRunAllReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	checks := preflight.Run(cfg)
	if !preflight.Ready(checks) {
		failure, _ := preflight.FirstFailure(checks)
		t.Fatalf("expected all checks ready, %q failed: %s", failure.Name, failure.Detail)
	}
}

func TestRunMissingDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.Transfer.Destination); err != nil {
		t.Fatalf("remove destination: %v", err)
	}

	checks := preflight.Run(cfg)
	if preflight.Ready(checks) {
		t.Fatal("expected readiness failure with missing destination")
	}
	failure, ok := preflight.FirstFailure(checks)
	if !ok {
		t.Fatal("expected a failed required check")
	}
	if failure.Name != "transfer destination" {
		t.Fatalf("unexpected failing check %q", failure.Name)
	}
}

func TestRunMissingAcquisitionDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.RemoveAll(cfg.Paths.AcquisitionDir); err != nil {
		t.Fatalf("remove acquisition dir: %v", err)
	}

	checks := preflight.Run(cfg)
	failure, ok := preflight.FirstFailure(checks)
	if !ok {
		t.Fatal("expected a failed required check")
	}
	if failure.Name != "acquisition directory" {
		t.Fatalf("unexpected failing check %q", failure.Name)
	}
}
