package blink

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Session accumulates frame samples and confirmed events over one processed
// video. It is pure in-memory accumulation with no error conditions; a video
// producing zero blinks is a valid session.
type Session struct {
	totalFrames int
	samples     []FrameSample // face-detected frames only, in frame order
	avgEARs     []float64     // AvgEAR of each entry in samples
	events      []Event
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}

// AddFrame records one decoded frame. Every frame increments the total
// frame count; the sample itself is kept only when a face was detected.
func (s *Session) AddFrame(sample FrameSample) {
	s.totalFrames++
	if sample.FaceDetected {
		s.samples = append(s.samples, sample)
		s.avgEARs = append(s.avgEARs, sample.AvgEAR)
	}
}

// AddEvent appends a confirmed blink event to the session log.
func (s *Session) AddEvent(e Event) {
	s.events = append(s.events, e)
}

// Events returns the confirmed events in emission order.
func (s *Session) Events() []Event {
	return s.events
}

// Samples returns the face-detected frame samples in frame order.
func (s *Session) Samples() []FrameSample {
	return s.samples
}

// SampledEARs returns the per-detected-frame average EAR values in frame
// order.
func (s *Session) SampledEARs() []float64 {
	return s.avgEARs
}

// Stats summarises one completed session.
type Stats struct {
	TotalFrames     int
	SampledFrames   int // frames with a detected face
	TotalBlinks     int
	MeanEAR         float64
	MinEAR          float64
	MaxEAR          float64
	StdDevEAR       float64 // population standard deviation
	BlinkRatePerMin float64
}

// Stats computes the final session statistics. videoDurationSeconds is the
// decoder-reported duration used for the blink rate; a rate of zero is
// reported without division when no blinks were detected or the duration is
// not positive.
func (s *Session) Stats(videoDurationSeconds float64) Stats {
	st := Stats{
		TotalFrames:   s.totalFrames,
		SampledFrames: len(s.avgEARs),
		TotalBlinks:   len(s.events),
	}
	if len(s.avgEARs) > 0 {
		st.MeanEAR = stat.Mean(s.avgEARs, nil)
		st.MinEAR = floats.Min(s.avgEARs)
		st.MaxEAR = floats.Max(s.avgEARs)
		st.StdDevEAR = stat.PopStdDev(s.avgEARs, nil)
	}
	if st.TotalBlinks > 0 && videoDurationSeconds > 0 {
		st.BlinkRatePerMin = float64(st.TotalBlinks) / (videoDurationSeconds / 60)
	}
	return st
}
