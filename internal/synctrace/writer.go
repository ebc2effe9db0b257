package synctrace

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Event is one state change in a Recording: the full line bitmask in effect
// from Sample onward.
type Event struct {
	Sample uint64
	State  uint64
}

// Recording describes a sync trace to encode. Used by rig simulators and
// tests; the acquisition instrument produces the same layout.
type Recording struct {
	StartTime  time.Time
	SampleRate float64
	LineCount  int
	Events     []Event
}

// Encode writes the recording in the wire format Read understands.
func (rec Recording) Encode(w io.Writer) error {
	if rec.LineCount <= 0 || rec.LineCount > MaxLines {
		return fmt.Errorf("synctrace: encode: line count %d out of range", rec.LineCount)
	}
	if rec.SampleRate <= 0 {
		return fmt.Errorf("synctrace: encode: sample rate must be positive")
	}

	header := make([]byte, headerSize)
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint16(header[4:6], Version)
	binary.LittleEndian.PutUint16(header[6:8], uint16(rec.LineCount))
	binary.LittleEndian.PutUint64(header[8:16], math.Float64bits(rec.SampleRate))
	binary.LittleEndian.PutUint64(header[16:24], uint64(rec.StartTime.UnixNano()))
	binary.LittleEndian.PutUint32(header[24:28], uint32(len(rec.Events)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("synctrace: encode header: %w", err)
	}

	record := make([]byte, recordSize)
	for _, event := range rec.Events {
		binary.LittleEndian.PutUint64(record[0:8], event.Sample)
		binary.LittleEndian.PutUint64(record[8:16], event.State)
		if _, err := w.Write(record); err != nil {
			return fmt.Errorf("synctrace: encode event: %w", err)
		}
	}
	return nil
}

// WriteFile encodes the recording to path.
func (rec Recording) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("synctrace: create %s: %w", path, err)
	}
	if err := rec.Encode(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
