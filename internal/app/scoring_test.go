package app

import "testing"

func TestPointsIncorrectAlwaysZero(t *testing.T) {
	for _, elapsed := range []int64{0, 1000, 9999, 100000} {
		if got := Points(false, elapsed, 10, 1000); got != 0 {
			t.Fatalf("incorrect answer at %dms scored %d, want 0", elapsed, got)
		}
	}
}

func TestPointsSpeedScaling(t *testing.T) {
	// 2000ms into a 10s window: 1000 * (1 - 0.2) = 800.
	if got := Points(true, 2000, 10, 1000); got != 800 {
		t.Fatalf("expected 800 points, got %d", got)
	}
	if got := Points(true, 0, 10, 1000); got != 1000 {
		t.Fatalf("instant answer should score max, got %d", got)
	}
}

func TestPointsFlooredAtOne(t *testing.T) {
	if got := Points(true, 10000, 10, 1000); got != 1 {
		t.Fatalf("answer at the limit should still score 1, got %d", got)
	}
	if got := Points(true, 50000, 10, 1000); got != 1 {
		t.Fatalf("answer past the limit should still score 1, got %d", got)
	}
}

func TestPointsNonIncreasing(t *testing.T) {
	prev := Points(true, 0, 22, 1000)
	for elapsed := int64(100); elapsed <= 23000; elapsed += 100 {
		got := Points(true, elapsed, 22, 1000)
		if got > prev {
			t.Fatalf("points increased from %d to %d at %dms", prev, got, elapsed)
		}
		if got < 1 || got > 1000 {
			t.Fatalf("points %d out of [1, 1000] at %dms", got, elapsed)
		}
		prev = got
	}
}
