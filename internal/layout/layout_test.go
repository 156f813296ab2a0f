package layout

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPlacer() *Placer {
	return NewPlacer(rand.New(rand.NewPCG(1, 2)))
}

func assertClearOf(t *testing.T, p Point, occupied []Point, spacing float64) {
	t.Helper()
	for _, o := range occupied {
		d := math.Hypot(o.X-p.X, o.Y-p.Y)
		require.GreaterOrEqualf(t, d, spacing, "point %+v is %.2f from %+v", p, d, o)
	}
}

func TestFindFree_EmptyReturnsOrigin(t *testing.T) {
	assert.Equal(t, Point{}, fixedPlacer().FindFree(nil))
}

func TestFindFree_WalksRowThenWraps(t *testing.T) {
	p := fixedPlacer()
	var occupied []Point
	// Columns 0..900 fit in the first row (x > 1000 wraps).
	for i := 0; i < 7; i++ {
		next := p.FindFree(occupied)
		assert.Equal(t, Point{X: float64(i) * 150, Y: 0}, next)
		occupied = append(occupied, next)
	}
	assert.Equal(t, Point{X: 0, Y: 150}, p.FindFree(occupied))
}

func TestFindFree_Deterministic(t *testing.T) {
	occupied := []Point{{X: 10, Y: 10}, {X: 160, Y: 0}, {X: 300, Y: 40}}
	a := fixedPlacer().FindFree(occupied)
	b := fixedPlacer().FindFree(occupied)
	assert.Equal(t, a, b)
	assertClearOf(t, a, occupied, DefaultSpacing)
}

func TestFindFree_NeverWithinSpacing(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 20; round++ {
		n := rng.IntN(200)
		occupied := make([]Point, n)
		for i := range occupied {
			occupied[i] = Point{X: rng.Float64() * 1200, Y: rng.Float64() * 1200}
		}
		got := fixedPlacer().FindFree(occupied)
		assertClearOf(t, got, occupied, DefaultSpacing)
	}
}

func TestFindFree_FallbackStillClear(t *testing.T) {
	p := fixedPlacer()
	p.MaxAttempts = 3
	p.Extent = 10
	occupied := []Point{{X: 0, Y: 0}, {X: 150, Y: 0}, {X: 300, Y: 0}, {X: 5, Y: 5}}
	got := p.FindFree(occupied)
	assertClearOf(t, got, occupied, DefaultSpacing)
}

func TestFindFreePosition_CustomSpacing(t *testing.T) {
	occupied := []Point{{X: 0, Y: 0}}
	got := FindFreePosition(occupied, 40)
	assert.Equal(t, Point{X: 40, Y: 0}, got)
}

func TestFindFree_NonPositiveSpacingUsesDefault(t *testing.T) {
	p := fixedPlacer()
	p.Spacing = 0
	assert.Equal(t, Point{X: 150, Y: 0}, p.FindFree([]Point{{}}))
}

func TestSnap(t *testing.T) {
	assert.Equal(t, Point{X: 50, Y: 100}, Snap(Point{X: 61, Y: 80}, 50))
	assert.Equal(t, Point{X: 61, Y: 80}, Snap(Point{X: 61, Y: 80}, 0))
}
