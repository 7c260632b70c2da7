package hardware

const (
	// UnlockAngle and LockAngle are the latch servo positions in degrees.
	UnlockAngle = 130.0
	LockAngle   = 30.0

	minPulse  = 500.0
	pulseSpan = 2000.0
	maxAngle  = 180.0
)

// Pulse maps a servo angle in degrees to a pulse width in microseconds:
// 500 + angle/180 * 2000. Angles are clamped to [0, 180].
func Pulse(angle float64) float64 {
	if angle < 0 {
		angle = 0
	}
	if angle > maxAngle {
		angle = maxAngle
	}
	return minPulse + (angle/maxAngle)*pulseSpan
}
