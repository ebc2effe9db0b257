package synctrace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"mesoprep/internal/services"
)

// Magic identifies a sync trace export.
var Magic = [4]byte{'M', 'S', 'Y', 'N'}

// Version is the only wire format revision this reader understands.
const Version uint16 = 1

// MaxLines is the number of digital lines a single trace can carry; the
// per-event state word is a 64-bit mask.
const MaxLines = 64

const (
	headerSize = 32
	recordSize = 16
)

// Unit selects the time base for edge queries.
type Unit int

const (
	// UnitSeconds reports edge times in seconds from the trace start.
	UnitSeconds Unit = iota
	// UnitSamples reports raw sample numbers.
	UnitSamples
)

// Timeline is the decoded, immutable view of one sync trace.
type Timeline struct {
	startTime  time.Time
	sampleRate float64
	lineCount  int
	rising     map[int][]uint64
	falling    map[int][]uint64
}

// ReadFile parses the sync trace at path. The source file is never mutated.
func ReadFile(path string) (*Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFormat, "synctrace", "open", path, err)
	}
	defer file.Close()
	timeline, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return timeline, nil
}

// Read parses a sync trace from r.
func Read(r io.Reader) (*Timeline, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, formatErr("read header", err)
	}

	if header[0] != Magic[0] || header[1] != Magic[1] || header[2] != Magic[2] || header[3] != Magic[3] {
		return nil, formatErr("bad magic", nil)
	}
	version := binary.LittleEndian.Uint16(header[4:6])
	if version != Version {
		return nil, formatErr(fmt.Sprintf("unsupported version %d", version), nil)
	}
	lineCount := int(binary.LittleEndian.Uint16(header[6:8]))
	if lineCount == 0 || lineCount > MaxLines {
		return nil, formatErr(fmt.Sprintf("line count %d out of range", lineCount), nil)
	}
	sampleRate := math.Float64frombits(binary.LittleEndian.Uint64(header[8:16]))
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, formatErr(fmt.Sprintf("invalid sample rate %v", sampleRate), nil)
	}
	startNanos := int64(binary.LittleEndian.Uint64(header[16:24]))
	eventCount := binary.LittleEndian.Uint32(header[24:28])

	timeline := &Timeline{
		startTime:  time.Unix(0, startNanos).UTC(),
		sampleRate: sampleRate,
		lineCount:  lineCount,
		rising:     make(map[int][]uint64),
		falling:    make(map[int][]uint64),
	}

	lineMask := uint64(math.MaxUint64)
	if lineCount < MaxLines {
		lineMask = (uint64(1) << uint(lineCount)) - 1
	}

	record := make([]byte, recordSize)
	var prevState uint64
	var prevSample uint64
	for i := uint32(0); i < eventCount; i++ {
		if _, err := io.ReadFull(r, record); err != nil {
			return nil, formatErr(fmt.Sprintf("truncated at event %d of %d", i, eventCount), err)
		}
		sample := binary.LittleEndian.Uint64(record[0:8])
		state := binary.LittleEndian.Uint64(record[8:16])

		if state&^lineMask != 0 {
			return nil, formatErr(fmt.Sprintf("event %d sets lines beyond line count %d", i, lineCount), nil)
		}
		if i > 0 && sample <= prevSample {
			return nil, formatErr(fmt.Sprintf("event %d sample %d not after %d", i, sample, prevSample), nil)
		}

		changed := state ^ prevState
		for line := 0; changed != 0 && line < lineCount; line++ {
			bit := uint64(1) << uint(line)
			if changed&bit == 0 {
				continue
			}
			if state&bit != 0 {
				timeline.rising[line] = append(timeline.rising[line], sample)
			} else {
				timeline.falling[line] = append(timeline.falling[line], sample)
			}
			changed &^= bit
		}

		prevState = state
		prevSample = sample
	}

	return timeline, nil
}

// StartTime is the wall-clock reference start of the recording.
func (t *Timeline) StartTime() time.Time {
	return t.startTime
}

// SampleRate is the sample-to-time conversion factor in Hz.
func (t *Timeline) SampleRate() float64 {
	return t.sampleRate
}

// LineCount is the number of digital lines in the recording.
func (t *Timeline) LineCount() int {
	return t.lineCount
}

// RisingEdges returns the ordered low-to-high transition times for line.
func (t *Timeline) RisingEdges(line int, unit Unit) ([]float64, error) {
	return t.edges(t.rising, line, unit)
}

// FallingEdges returns the ordered high-to-low transition times for line.
func (t *Timeline) FallingEdges(line int, unit Unit) ([]float64, error) {
	return t.edges(t.falling, line, unit)
}

func (t *Timeline) edges(source map[int][]uint64, line int, unit Unit) ([]float64, error) {
	if line < 0 || line >= t.lineCount {
		return nil, services.Wrap(services.ErrValidation, "synctrace", "edges",
			fmt.Sprintf("line %d out of range [0, %d)", line, t.lineCount), nil)
	}
	samples := source[line]
	out := make([]float64, len(samples))
	for i, sample := range samples {
		switch unit {
		case UnitSamples:
			out[i] = float64(sample)
		default:
			out[i] = float64(sample) / t.sampleRate
		}
	}
	return out, nil
}

func formatErr(message string, err error) error {
	if err != nil && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		// EOF detail adds nothing over the positional message.
		err = nil
	}
	return services.Wrap(services.ErrFormat, "synctrace", "parse", message, err)
}
