// Package blink implements the blink-detection signal pipeline: converting
// eye-landmark coordinates into a scalar eye-aspect-ratio (EAR) signal,
// debouncing that signal into discrete blink events, and aggregating events
// and raw samples into session statistics.
package blink

import (
	"errors"
	"math"
)

// Point is a normalized planar landmark coordinate. X and Y are each in
// [0,1] relative to the frame dimensions.
type Point struct {
	X float64
	Y float64
}

// Anatomical positions within an EyeLandmarks set. EAR computation indexes
// by these roles, never by raw provider numbering.
const (
	OuterCorner = iota
	UpperOuter
	UpperInner
	InnerCorner
	LowerInner
	LowerOuter

	EyePointCount
)

// LeftEyeIndices and RightEyeIndices map anatomical roles to the landmark
// provider's native numbering (MediaPipe face mesh). Position i of each
// array is the provider index for anatomical role i.
var (
	LeftEyeIndices  = [EyePointCount]int{33, 160, 158, 133, 153, 144}
	RightEyeIndices = [EyePointCount]int{362, 385, 387, 263, 373, 380}
)

// EyeLandmarks holds the six landmark points of one eye in anatomical
// order: outer corner, upper outer, upper inner, inner corner, lower inner,
// lower outer.
type EyeLandmarks [EyePointCount]Point

// ErrDegenerateLandmarks reports an eye landmark set whose horizontal
// corner-to-corner distance is zero. The EAR is undefined for such a set
// and the frame is treated as if no face had been detected.
var ErrDegenerateLandmarks = errors.New("degenerate eye landmarks: zero horizontal distance")

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EAR computes the eye aspect ratio: the sum of the two vertical lid
// distances over twice the horizontal corner distance. The result is
// dimensionless and invariant under uniform scaling of all six points.
// Returns ErrDegenerateLandmarks when the horizontal distance is zero.
func (e EyeLandmarks) EAR() (float64, error) {
	horizontal := distance(e[OuterCorner], e[InnerCorner])
	if horizontal == 0 {
		return 0, ErrDegenerateLandmarks
	}
	vertical1 := distance(e[UpperOuter], e[LowerOuter])
	vertical2 := distance(e[UpperInner], e[LowerInner])
	return (vertical1 + vertical2) / (2 * horizontal), nil
}
