package app

import "math"

// Points converts correctness and answer speed into a score. Incorrect
// answers earn nothing. Correct answers earn maxPoints scaled down linearly
// by elapsed time over the limit, but never less than 1.
func Points(correct bool, elapsedMs int64, limitSec, maxPoints int) int {
	if !correct {
		return 0
	}
	limitMs := float64(limitSec) * 1000
	t := float64(elapsedMs) / limitMs
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pts := int(math.Round(float64(maxPoints) * (1 - t)))
	if pts < 1 {
		pts = 1
	}
	return pts
}
