package ramp

const (
	ServoMin = 0
	ServoMax = 180

	// operator range before the mechanical offset is added
	ServoUsableMin = 10
	ServoUsableMax = 170
)

// ServoAngle bounds a requested angle to the usable range, adds the
// channel's fixed offset and clamps the result to the hardware limits.
func ServoAngle(requested, offset int) int {
	return Clamp(ServoMin, ServoMax, Clamp(ServoUsableMin, ServoUsableMax, requested)+offset)
}
