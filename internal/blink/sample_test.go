package blink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSample(t *testing.T) {
	left := openEye()
	right := openEye()
	for i := range right {
		// Halve the vertical extent of the right eye: EAR 0.125.
		right[i].Y /= 2
	}

	sample := NewSample(7, 233.3, left, right)
	require.True(t, sample.FaceDetected)
	assert.Equal(t, 7, sample.FrameIndex)
	assert.InDelta(t, 233.3, sample.TimestampMs, 1e-9)
	assert.InDelta(t, 0.25, sample.LeftEAR, 1e-12)
	assert.InDelta(t, 0.125, sample.RightEAR, 1e-12)
	assert.InDelta(t, 0.1875, sample.AvgEAR, 1e-12)
}

func TestNewSampleDegenerateEyeBecomesNoDetection(t *testing.T) {
	good := openEye()
	var degenerate EyeLandmarks // all points coincident

	for _, tc := range []struct {
		name        string
		left, right EyeLandmarks
	}{
		{"left degenerate", degenerate, good},
		{"right degenerate", good, degenerate},
		{"both degenerate", degenerate, degenerate},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sample := NewSample(3, 100, tc.left, tc.right)
			assert.False(t, sample.FaceDetected)
			assert.Equal(t, 3, sample.FrameIndex)
			assert.InDelta(t, 100.0, sample.TimestampMs, 1e-9)
			assert.Zero(t, sample.AvgEAR)
		})
	}
}

func TestNoDetectionSample(t *testing.T) {
	sample := NoDetectionSample(12, 400)
	assert.False(t, sample.FaceDetected)
	assert.Equal(t, 12, sample.FrameIndex)
	assert.InDelta(t, 400.0, sample.TimestampMs, 1e-9)
}
