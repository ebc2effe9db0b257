// Package synctrace decodes the instrument's binary event-stream export into
// a queryable timeline of digital line transitions.
//
// The wire format is a fixed little-endian layout: a 32-byte header (magic,
// version, line count, sample rate, wall-clock start time, event count)
// followed by one 16-byte record per event carrying the sample number and the
// full line bitmask after the transition. Edges are derived from bit changes
// between consecutive records, starting from an all-low state, so per-line
// edge times are monotonically non-decreasing by construction.
//
// A Timeline is immutable once parsed. Timing resolution owns it for the
// duration of a single session and discards it afterwards.
package synctrace
