package blink

import "gonum.org/v1/gonum/stat"

// Default detection parameters. An eye counts as closed while the frame's
// average EAR is strictly below the threshold; a closure must hold for at
// least MinRun consecutive detected frames before it is confirmed as a
// blink, which debounces single-frame detector jitter.
const (
	DefaultEARThreshold = 0.2
	DefaultMinRun       = 2
)

// Config holds the detection parameters.
type Config struct {
	EARThreshold float64
	MinRun       int
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		EARThreshold: DefaultEARThreshold,
		MinRun:       DefaultMinRun,
	}
}

// Event is a confirmed, duration-filtered closed-eye episode. Events are
// numbered 1..N in emission order with no gaps. The EAR averages cover only
// the below-threshold frames of the closure, so AvgEAR is always below the
// configured threshold.
type Event struct {
	BlinkNumber    int
	StartFrame     int     // frame at which AvgEAR first dropped below threshold
	EndTimestampMs float64 // timestamp of the frame at which it rose back
	DurationFrames int     // consecutive below-threshold frames, >= MinRun
	AvgLeftEAR     float64
	AvgRightEAR    float64
	AvgEAR         float64
}

// State is the detector state threaded through Step. The zero value is the
// initial state: eyes open, no closure being tracked, next blink numbered 1.
// State is a value type; Step never mutates its argument.
type State struct {
	closing    bool
	startFrame int
	runLeft    []float64
	runRight   []float64
	runAvg     []float64
	emitted    int // events emitted so far; next blink number is emitted+1
}

// Closing reports whether a closure run is currently being tracked.
func (s State) Closing() bool { return s.closing }

// EventsEmitted returns the number of events emitted so far.
func (s State) EventsEmitted() int { return s.emitted }

// Step applies one frame sample to the detector and returns the next state
// plus the completed blink event, if this sample confirmed one.
//
// Samples with FaceDetected false are ignored entirely: a detection gap in
// the middle of a closed-eye run neither resets the run nor extends its
// duration. A run still open when the stream ends is discarded, since a
// closure that never reopens cannot be duration-confirmed.
func (c Config) Step(s State, sample FrameSample) (State, *Event) {
	if !sample.FaceDetected {
		return s, nil
	}

	if sample.AvgEAR < c.EARThreshold {
		if !s.closing {
			s.closing = true
			s.startFrame = sample.FrameIndex
			s.runLeft = nil
			s.runRight = nil
			s.runAvg = nil
		}
		// Copy-on-append so the returned state does not share backing
		// arrays with the input state.
		s.runLeft = append(s.runLeft[:len(s.runLeft):len(s.runLeft)], sample.LeftEAR)
		s.runRight = append(s.runRight[:len(s.runRight):len(s.runRight)], sample.RightEAR)
		s.runAvg = append(s.runAvg[:len(s.runAvg):len(s.runAvg)], sample.AvgEAR)
		return s, nil
	}

	if !s.closing {
		return s, nil
	}

	var event *Event
	if len(s.runAvg) >= c.MinRun {
		event = &Event{
			BlinkNumber:    s.emitted + 1,
			StartFrame:     s.startFrame,
			EndTimestampMs: sample.TimestampMs,
			DurationFrames: len(s.runAvg),
			AvgLeftEAR:     stat.Mean(s.runLeft, nil),
			AvgRightEAR:    stat.Mean(s.runRight, nil),
			AvgEAR:         stat.Mean(s.runAvg, nil),
		}
		s.emitted++
	}

	s.closing = false
	s.startFrame = 0
	s.runLeft = nil
	s.runRight = nil
	s.runAvg = nil
	return s, event
}
