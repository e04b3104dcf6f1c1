package game

import (
	"math"
	"testing"
)

func TestBudgetResetAndEmpty(t *testing.T) {
	b := NewDistanceBudget(100)

	if b.Remaining() != 100 {
		t.Fatalf("fresh budget remaining = %v; want 100", b.Remaining())
	}

	b.Empty()
	if b.Remaining() != 0 {
		t.Fatalf("emptied budget remaining = %v; want 0", b.Remaining())
	}
	if b.CanDraw() {
		t.Fatal("emptied budget should not permit drawing")
	}

	b.Reset()
	if b.Consumed() != 0 {
		t.Fatalf("reset budget consumed = %v; want 0", b.Consumed())
	}
	if !b.CanDraw() {
		t.Fatal("reset budget should permit drawing")
	}
}

func TestBudgetHysteresis(t *testing.T) {
	b := NewDistanceBudget(100)
	b.AddConsumed(99.5)

	// less than one unit left: drawing must stay disabled
	if b.CanDraw() {
		t.Fatalf("remaining %v should not permit drawing", b.Remaining())
	}

	b.Reset()
	b.AddConsumed(98)
	if !b.CanDraw() {
		t.Fatalf("remaining %v should permit drawing", b.Remaining())
	}
}

func TestApplySegmentTruncation(t *testing.T) {
	// Scenario: limit 100, 95 consumed, attempted segment of length 20.
	b := NewDistanceBudget(100)
	b.AddConsumed(95)

	ex, ey, truncated := b.ApplySegment(0, 0, 20, 0)
	if !truncated {
		t.Fatal("segment past the limit should be truncated")
	}
	if b.Consumed() != 100 {
		t.Fatalf("consumed = %v; want exactly 100", b.Consumed())
	}
	if b.Remaining() != 0 {
		t.Fatalf("remaining = %v; want 0", b.Remaining())
	}
	if math.Abs(ex-5) > 1e-9 || ey != 0 {
		t.Fatalf("endpoint = (%v,%v); want (5,0)", ex, ey)
	}
	if b.CanDraw() {
		t.Fatal("drawing should be disabled after truncation")
	}
}

func TestApplySegmentDiagonalTruncation(t *testing.T) {
	b := NewDistanceBudget(10)
	b.AddConsumed(5)

	// segment of length 10 along the diagonal, only 5 remaining
	ex, ey, truncated := b.ApplySegment(0, 0, 10/math.Sqrt2, 10/math.Sqrt2)
	if !truncated {
		t.Fatal("want truncation")
	}

	gotLen := math.Hypot(ex, ey)
	if math.Abs(gotLen-5) > 1e-9 {
		t.Fatalf("truncated segment length = %v; want 5", gotLen)
	}
}

func TestBudgetInvariantUnderSequences(t *testing.T) {
	// With truncation applied, consumed never exceeds the limit and
	// remaining never exceeds the limit.
	b := NewDistanceBudget(50)

	segments := [][4]float64{
		{0, 0, 10, 0},
		{10, 0, 10, 25},
		{10, 25, 40, 25},
		{40, 25, 40, 100},
		{40, 100, 0, 0},
	}

	x, y := 0.0, 0.0
	for _, seg := range segments {
		ex, ey, truncated := b.ApplySegment(x, y, seg[2], seg[3])
		if b.Consumed() > b.Limit() {
			t.Fatalf("consumed %v exceeds limit %v", b.Consumed(), b.Limit())
		}
		if b.Remaining() > b.Limit() {
			t.Fatalf("remaining %v exceeds limit %v", b.Remaining(), b.Limit())
		}
		x, y = ex, ey
		if truncated {
			break
		}
	}

	if b.Consumed() != b.Limit() {
		t.Fatalf("sequence long enough to exhaust budget, consumed = %v", b.Consumed())
	}
}

func TestApplySegmentZeroLength(t *testing.T) {
	b := NewDistanceBudget(10)
	ex, ey, truncated := b.ApplySegment(3, 4, 3, 4)
	if truncated || ex != 3 || ey != 4 || b.Consumed() != 0 {
		t.Fatalf("zero-length segment changed state: (%v,%v) truncated=%v consumed=%v", ex, ey, truncated, b.Consumed())
	}
}
