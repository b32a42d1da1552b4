package transit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	a := NewPoint(0, 0)
	b := NewPoint(0, 0.001)

	// 0.001 degrees of latitude is ~111 metres
	assert.InDelta(t, 111.2, a.Distance(&b), 0.5)
	assert.Zero(t, a.Distance(&a))

	// Symmetric
	assert.Equal(t, a.Distance(&b), b.Distance(&a))
}

func TestDistanceFromLine(t *testing.T) {
	a := NewPoint(0, 0)
	b := NewPoint(0, 0.002)

	onLine := NewPoint(0, 0.001)
	assert.InDelta(t, 0, onLine.Distance(&onLine), 0.01)
	assert.InDelta(t, 0, onLine.DistanceFromLine(a, b), 0.01)

	// A point abeam the middle of the segment projects perpendicular onto it
	abeam := NewPoint(0.001, 0.001)
	assert.InDelta(t, 111.2, abeam.DistanceFromLine(a, b), 0.5)

	// Beyond either end the distance is to the endpoint
	past := NewPoint(0, 0.003)
	assert.InDelta(t, 111.2, past.DistanceFromLine(a, b), 0.5)

	before := NewPoint(0, -0.001)
	assert.InDelta(t, 111.2, before.DistanceFromLine(a, b), 0.5)
}

func TestDistanceAlongLine(t *testing.T) {
	a := NewPoint(0, 0)
	b := NewPoint(0, 0.002)

	mid := NewPoint(0, 0.001)
	quarter := NewPoint(0, 0.0005)
	assert.InDelta(t, 0.5, mid.DistanceAlongLine(a, b), 0.001)
	assert.InDelta(t, 0.25, quarter.DistanceAlongLine(a, b), 0.001)

	// Clamped to the segment
	before := NewPoint(0, -0.001)
	past := NewPoint(0, 0.005)
	assert.Zero(t, before.DistanceAlongLine(a, b))
	assert.Equal(t, 1.0, past.DistanceAlongLine(a, b))

	// Degenerate zero length segment
	assert.Zero(t, mid.DistanceAlongLine(a, a))
}
