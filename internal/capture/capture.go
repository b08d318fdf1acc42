// Package capture reads recorded landmark captures: the offline output of
// the external face-landmark detector, one JSON line per decoded video
// frame. A capture stands in for the video decoder and detector pair, the
// same way recorded sensor data stands in for live hardware elsewhere in
// our tooling.
//
// File layout: the first line is a metadata object describing the source
// video; every following line is one frame:
//
//	{"video":"a.mp4","width":1280,"height":720,"fps":29.97,"frame_count":1800}
//	{"frame":1,"timestamp_ms":33.4,"landmarks":{"33":[0.41,0.38], ...}}
//	{"frame":2,"timestamp_ms":66.7}
//
// A frame without a landmarks object is a frame where no face was detected.
package capture

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/monitoring"
)

// Fatal open errors. Anything that goes wrong after a successful Open is
// treated as end-of-stream, not an error.
var (
	ErrInputNotFound = errors.New("input file not found")
	ErrOpenFailure   = errors.New("cannot open capture")
)

// maxLineBytes bounds one capture line. A full MediaPipe face mesh is 478
// landmarks, well under this limit.
const maxLineBytes = 1 << 20

// Metadata describes the source video as reported by the decoder.
type Metadata struct {
	Video      string  `json:"video"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
}

// DurationSeconds returns the video duration derived from frame count and
// frame rate, or zero when the frame rate is unknown.
func (m Metadata) DurationSeconds() float64 {
	if m.FPS <= 0 {
		return 0
	}
	return float64(m.FrameCount) / m.FPS
}

// Frame is one decoded frame's detector output. Landmarks maps provider
// landmark indices (as decimal strings, a JSON object restriction) to
// normalized coordinates; it is nil when no face was detected.
type Frame struct {
	Index       int                   `json:"frame"`
	TimestampMs float64               `json:"timestamp_ms"`
	Landmarks   map[string][2]float64 `json:"landmarks,omitempty"`
}

// FaceDetected reports whether the detector returned a landmark set for
// this frame.
func (f Frame) FaceDetected() bool {
	return len(f.Landmarks) > 0
}

// Eye extracts one eye's six landmarks using a provider index mapping
// (blink.LeftEyeIndices or blink.RightEyeIndices), re-projected into
// anatomical order. Returns false if any required index is missing.
func (f Frame) Eye(indices [blink.EyePointCount]int) (blink.EyeLandmarks, bool) {
	var eye blink.EyeLandmarks
	for role, idx := range indices {
		p, ok := f.Landmarks[strconv.Itoa(idx)]
		if !ok {
			return blink.EyeLandmarks{}, false
		}
		eye[role] = blink.Point{X: p[0], Y: p[1]}
	}
	return eye, true
}

// Sample converts the frame into the blink pipeline's sample form. Frames
// with no detection, a missing eye index, or degenerate eye geometry all
// become no-detection samples.
func (f Frame) Sample() blink.FrameSample {
	if !f.FaceDetected() {
		return blink.NoDetectionSample(f.Index, f.TimestampMs)
	}
	left, okL := f.Eye(blink.LeftEyeIndices)
	right, okR := f.Eye(blink.RightEyeIndices)
	if !okL || !okR {
		return blink.NoDetectionSample(f.Index, f.TimestampMs)
	}
	return blink.NewSample(f.Index, f.TimestampMs, left, right)
}

// Reader streams frames from a capture file in recorded order.
type Reader struct {
	f       *os.File
	scanner *bufio.Scanner
	meta    Metadata
	done    bool
}

// Open opens a capture file and parses its metadata header. A missing file
// maps to ErrInputNotFound and any other failure to read or parse the
// header maps to ErrOpenFailure; both are fatal to a run.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrOpenFailure, err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		f.Close()
		return nil, fmt.Errorf("%w: missing metadata header", ErrOpenFailure)
	}
	var meta Metadata
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: bad metadata header: %v", ErrOpenFailure, err)
	}

	return &Reader{f: f, scanner: scanner, meta: meta}, nil
}

// Metadata returns the capture's video metadata.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// Next returns the next recorded frame. It returns io.EOF at the end of the
// capture. A truncated or malformed line mid-stream ends the stream early
// rather than failing the run; whatever was read so far still gets
// analysed.
func (r *Reader) Next() (Frame, error) {
	if r.done {
		return Frame{}, io.EOF
	}
	if !r.scanner.Scan() {
		r.done = true
		if err := r.scanner.Err(); err != nil {
			monitoring.Logf("capture read stopped early: %v", err)
		}
		return Frame{}, io.EOF
	}
	var frame Frame
	if err := json.Unmarshal(r.scanner.Bytes(), &frame); err != nil {
		r.done = true
		monitoring.Logf("capture read stopped early: bad frame line: %v", err)
		return Frame{}, io.EOF
	}
	return frame, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
