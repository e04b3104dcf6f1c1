package game

import "math"

// drawHysteresis keeps the drawing-enabled flag from flickering right at the
// budget boundary: input stays allowed only while more than one unit remains.
const drawHysteresis = 1.0

// DistanceBudget tracks how much ink a player may still spend this turn,
// measured in cumulative pointer-travel distance in canvas pixels.
//
// It is not safe for concurrent use; the owning session serializes access.
type DistanceBudget struct {
	limit    float64
	consumed float64
}

func NewDistanceBudget(limit float64) *DistanceBudget {
	return &DistanceBudget{limit: limit}
}

func (b *DistanceBudget) Limit() float64 { return b.limit }

func (b *DistanceBudget) Consumed() float64 { return b.consumed }

func (b *DistanceBudget) Remaining() float64 { return b.limit - b.consumed }

// Reset grants a fresh turn's worth of budget.
func (b *DistanceBudget) Reset() { b.consumed = 0 }

// Empty forbids drawing until the next Reset.
func (b *DistanceBudget) Empty() { b.consumed = b.limit }

func (b *DistanceBudget) AddConsumed(delta float64) { b.consumed += delta }

// CanDraw reports whether drawing input is currently permitted.
func (b *DistanceBudget) CanDraw() bool { return b.Remaining() > drawHysteresis }

// ApplySegment consumes the distance of a pointer-drag segment from
// (x0,y0) to (x1,y1). When the segment would push consumption past the
// limit, the endpoint is interpolated along the segment so consumption
// lands exactly on the limit; the returned endpoint is where the stroke
// must actually stop. truncated reports whether that clipping happened,
// in which case the caller must disable further drawing.
func (b *DistanceBudget) ApplySegment(x0, y0, x1, y1 float64) (ex, ey float64, truncated bool) {
	dist := math.Hypot(x1-x0, y1-y0)
	if dist == 0 {
		return x1, y1, false
	}

	if b.consumed+dist > b.limit {
		frac := b.Remaining() / dist
		if frac < 0 {
			frac = 0
		}
		ex = x0 + (x1-x0)*frac
		ey = y0 + (y1-y0)*frac
		b.consumed = b.limit
		return ex, ey, true
	}

	b.consumed += dist
	return x1, y1, false
}
