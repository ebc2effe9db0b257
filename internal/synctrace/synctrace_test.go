package synctrace_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"mesoprep/internal/services"
	"mesoprep/internal/synctrace"
)

var traceStart = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func encode(t *testing.T, rec synctrace.Recording) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := rec.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTripSingleEdgePair(t *testing.T) {
	const rate = 100000.0
	rec := synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: rate,
		LineCount:  32,
		Events: []synctrace.Event{
			{Sample: uint64(10 * rate), State: 1 << 5},
			{Sample: uint64(70 * rate), State: 0},
		},
	}

	timeline, err := synctrace.Read(bytes.NewReader(encode(t, rec)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !timeline.StartTime().Equal(traceStart) {
		t.Fatalf("start time %v, want %v", timeline.StartTime(), traceStart)
	}
	if timeline.SampleRate() != rate {
		t.Fatalf("sample rate %v, want %v", timeline.SampleRate(), rate)
	}
	if timeline.LineCount() != 32 {
		t.Fatalf("line count %d, want 32", timeline.LineCount())
	}

	rising, err := timeline.RisingEdges(5, synctrace.UnitSeconds)
	if err != nil {
		t.Fatalf("RisingEdges failed: %v", err)
	}
	if len(rising) != 1 || rising[0] != 10 {
		t.Fatalf("rising edges %v, want [10]", rising)
	}

	falling, err := timeline.FallingEdges(5, synctrace.UnitSeconds)
	if err != nil {
		t.Fatalf("FallingEdges failed: %v", err)
	}
	if len(falling) != 1 || falling[0] != 70 {
		t.Fatalf("falling edges %v, want [70]", falling)
	}

	samples, err := timeline.RisingEdges(5, synctrace.UnitSamples)
	if err != nil {
		t.Fatalf("RisingEdges samples failed: %v", err)
	}
	if len(samples) != 1 || samples[0] != 10*rate {
		t.Fatalf("rising samples %v, want [%v]", samples, 10*rate)
	}
}

func TestEdgesAreMonotonicPerLine(t *testing.T) {
	rec := synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  8,
		Events: []synctrace.Event{
			{Sample: 100, State: 1 << 2},
			{Sample: 200, State: 0},
			{Sample: 300, State: 1 << 2},
			{Sample: 450, State: 1<<2 | 1<<3},
			{Sample: 500, State: 1 << 3},
		},
	}
	timeline, err := synctrace.Read(bytes.NewReader(encode(t, rec)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	rising, err := timeline.RisingEdges(2, synctrace.UnitSamples)
	if err != nil {
		t.Fatalf("RisingEdges failed: %v", err)
	}
	falling, err := timeline.FallingEdges(2, synctrace.UnitSamples)
	if err != nil {
		t.Fatalf("FallingEdges failed: %v", err)
	}
	if len(rising) != 2 || rising[0] != 100 || rising[1] != 300 {
		t.Fatalf("rising %v, want [100 300]", rising)
	}
	if len(falling) != 2 || falling[0] != 200 || falling[1] != 500 {
		t.Fatalf("falling %v, want [200 500]", falling)
	}
	for i := 1; i < len(rising); i++ {
		if rising[i] < rising[i-1] {
			t.Fatalf("rising edges out of order: %v", rising)
		}
	}
}

func TestQuietLineHasNoEdges(t *testing.T) {
	rec := synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  8,
		Events:     []synctrace.Event{{Sample: 10, State: 1 << 1}},
	}
	timeline, err := synctrace.Read(bytes.NewReader(encode(t, rec)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	rising, err := timeline.RisingEdges(5, synctrace.UnitSeconds)
	if err != nil {
		t.Fatalf("RisingEdges failed: %v", err)
	}
	if len(rising) != 0 {
		t.Fatalf("expected no edges on quiet line, got %v", rising)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := encode(t, synctrace.Recording{StartTime: traceStart, SampleRate: 1000, LineCount: 8})
	data[0] = 'X'
	_, err := synctrace.Read(bytes.NewReader(data))
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestReadRejectsUnsupportedVersion(t *testing.T) {
	data := encode(t, synctrace.Recording{StartTime: traceStart, SampleRate: 1000, LineCount: 8})
	data[4] = 0xFF
	_, err := synctrace.Read(bytes.NewReader(data))
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestReadRejectsTruncatedEvents(t *testing.T) {
	data := encode(t, synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  8,
		Events:     []synctrace.Event{{Sample: 10, State: 1}, {Sample: 20, State: 0}},
	})
	_, err := synctrace.Read(bytes.NewReader(data[:len(data)-5]))
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestReadRejectsOutOfOrderSamples(t *testing.T) {
	data := encode(t, synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  8,
		Events:     []synctrace.Event{{Sample: 50, State: 1}, {Sample: 40, State: 0}},
	})
	_, err := synctrace.Read(bytes.NewReader(data))
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestReadRejectsStateBeyondLineCount(t *testing.T) {
	data := encode(t, synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  4,
		Events:     []synctrace.Event{{Sample: 10, State: 1 << 6}},
	})
	_, err := synctrace.Read(bytes.NewReader(data))
	if !errors.Is(err, services.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestEdgesRejectLineOutOfRange(t *testing.T) {
	timeline, err := synctrace.Read(bytes.NewReader(encode(t, synctrace.Recording{
		StartTime:  traceStart,
		SampleRate: 1000,
		LineCount:  8,
	})))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := timeline.RisingEdges(8, synctrace.UnitSeconds); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := timeline.FallingEdges(-1, synctrace.UnitSeconds); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
