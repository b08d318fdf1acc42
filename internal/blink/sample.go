package blink

// FrameSample is the per-frame measurement fed to the detector. One sample
// exists per decoded frame regardless of whether a face was found; the EAR
// fields are meaningful only when FaceDetected is true.
type FrameSample struct {
	FrameIndex   int     // 1-based, strictly increasing
	TimestampMs  float64 // decoder-reported presentation time
	FaceDetected bool
	LeftEAR      float64
	RightEAR     float64
	AvgEAR       float64
}

// NewSample builds a FrameSample from both eyes' landmarks. A degenerate
// landmark set on either eye yields a no-detection sample rather than an
// infinite ratio, matching the handling of frames where the detector found
// no face at all.
func NewSample(frameIndex int, timestampMs float64, left, right EyeLandmarks) FrameSample {
	leftEAR, errL := left.EAR()
	rightEAR, errR := right.EAR()
	if errL != nil || errR != nil {
		return NoDetectionSample(frameIndex, timestampMs)
	}
	return FrameSample{
		FrameIndex:   frameIndex,
		TimestampMs:  timestampMs,
		FaceDetected: true,
		LeftEAR:      leftEAR,
		RightEAR:     rightEAR,
		AvgEAR:       (leftEAR + rightEAR) / 2,
	}
}

// NoDetectionSample builds the sample for a frame where the landmark
// provider returned no usable face.
func NoDetectionSample(frameIndex int, timestampMs float64) FrameSample {
	return FrameSample{FrameIndex: frameIndex, TimestampMs: timestampMs}
}
