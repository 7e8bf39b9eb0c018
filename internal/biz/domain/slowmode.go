package domain

// NextDelay applies the bang-bang slowmode policy.
//
// A rate above target raises the delay by one second, a rate below target/2
// lowers it by one second, anything in between holds. target/2 uses integer
// division, so odd targets get a dead-band one message wider on the low side.
func NextDelay(rate, target, current, minDelay, maxDelay int) int {
	switch {
	case rate > target:
		return min(current+1, maxDelay)
	case rate < target/2:
		return max(current-1, minDelay)
	default:
		return current
	}
}

// Direction is the direction of a manual override
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Valid checks if d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// StepDelay moves current one second in the given direction, clamped to [minDelay, maxDelay]
func StepDelay(d Direction, current, minDelay, maxDelay int) int {
	next := current
	switch d {
	case DirectionIncrease:
		next = current + 1
	case DirectionDecrease:
		next = current - 1
	}
	return max(min(next, maxDelay), minDelay)
}
