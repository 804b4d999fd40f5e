package audio

import "math"

// volumeToPower maps a 0.0-1.0 linear volume onto beep's base-2 exponent.
// Unity gain is 0; values near zero collapse to silence.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10 // Silent
	}
	return math.Log2(vol)
}
