package tempora

import "math"

// Phi is the golden ratio
const Phi = 1.6180339887498948

// GoldenAngle is the phyllotaxis step, 360/φ²
const GoldenAngle = 137.50776405003785

// Phase boundaries of the scale transition curve, as fractions of raw progress
const (
	phaseOneEnd   = 0.3
	phaseTwoEnd   = 0.7
	phaseTwoWidth = phaseTwoEnd - phaseOneEnd
	phaseTreWidth = 1.0 - phaseTwoEnd
)

// EaseTriplePhase maps raw progress to eased progress in three sections:
//   - p < 0.3: a fast start, (p/0.3)^(1/φ) scaled into [0, 0.3)
//   - 0.3 ≤ p < 0.7: linear
//   - p ≥ 0.7: a soft landing, ((p-0.7)/0.3)^φ scaled into [0.7, 1]
//
// The curve is continuous and non-decreasing, and returns exactly 0 and 1 at the ends.
func EaseTriplePhase(p float64) float64 {
	switch {
	case math.IsNaN(p) || p <= 0:
		return 0
	case p >= 1:
		return 1
	case p < phaseOneEnd:
		return phaseOneEnd * math.Pow(p/phaseOneEnd, 1/Phi)
	case p < phaseTwoEnd:
		return phaseOneEnd + (p-phaseOneEnd)/phaseTwoWidth*phaseTwoWidth
	default:
		return phaseTwoEnd + math.Pow((p-phaseTwoEnd)/phaseTreWidth, Phi)*phaseTreWidth
	}
}

// TransitionPhase reports which section (1, 2 or 3) raw progress p falls in
func TransitionPhase(p float64) int {
	switch {
	case p < phaseOneEnd:
		return 1
	case p < phaseTwoEnd:
		return 2
	default:
		return 3
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
