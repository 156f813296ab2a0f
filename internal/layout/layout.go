// Package layout places new graph nodes at unoccupied coordinates.
package layout

import (
	"math"
	"math/rand/v2"
)

// Default placement parameters.
const (
	DefaultSpacing     = 150.0
	DefaultMaxX        = 1000.0
	DefaultMaxAttempts = 1000
	DefaultExtent      = 1000.0
	DefaultGridSize    = 50.0
)

// Point is a coordinate in graph space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placer finds free positions on a grid walk starting at the origin.
type Placer struct {
	Spacing     float64
	MaxX        float64
	MaxAttempts int
	// Extent bounds the square used by the random fallback.
	Extent float64

	rng *rand.Rand
}

// NewPlacer returns a Placer with default parameters. A nil rng seeds a
// random source; tests pass a fixed one.
func NewPlacer(rng *rand.Rand) *Placer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Placer{
		Spacing:     DefaultSpacing,
		MaxX:        DefaultMaxX,
		MaxAttempts: DefaultMaxAttempts,
		Extent:      DefaultExtent,
		rng:         rng,
	}
}

// FindFreePosition places a point at least spacing away from every occupied
// point using default bounds.
func FindFreePosition(occupied []Point, spacing float64) Point {
	p := NewPlacer(nil)
	p.Spacing = spacing
	return p.FindFree(occupied)
}

// FindFree returns a point at least Spacing away from every occupied point.
//
// Candidates are tested left to right, top to bottom: x advances by Spacing
// until it exceeds MaxX, then resets while y advances. After MaxAttempts
// candidates the search falls back to random points inside [0, Extent).
func (p *Placer) FindFree(occupied []Point) Point {
	spacing := p.spacing()
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	maxX := p.MaxX
	if maxX <= 0 {
		maxX = DefaultMaxX
	}

	var x, y float64
	for i := 0; i < attempts; i++ {
		c := Point{X: x, Y: y}
		if isFree(c, occupied, spacing) {
			return c
		}
		x += spacing
		if x > maxX {
			x = 0
			y += spacing
		}
	}
	return p.fallback(occupied, spacing, attempts)
}

func (p *Placer) fallback(occupied []Point, spacing float64, attempts int) Point {
	extent := p.Extent
	if extent <= 0 {
		extent = DefaultExtent
	}
	rng := p.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for i := 0; i < attempts; i++ {
		c := Point{X: rng.Float64() * extent, Y: rng.Float64() * extent}
		if isFree(c, occupied, spacing) {
			return c
		}
	}
	// One row below the lowest occupied point is always free.
	maxY := 0.0
	for _, o := range occupied {
		maxY = math.Max(maxY, o.Y)
	}
	return Point{X: 0, Y: maxY + spacing}
}

func (p *Placer) spacing() float64 {
	if p.Spacing <= 0 {
		return DefaultSpacing
	}
	return p.Spacing
}

func isFree(c Point, occupied []Point, spacing float64) bool {
	for _, o := range occupied {
		if math.Hypot(o.X-c.X, o.Y-c.Y) < spacing {
			return false
		}
	}
	return true
}

// Snap rounds p to the nearest multiple of grid on both axes.
func Snap(p Point, grid float64) Point {
	if grid <= 0 {
		return p
	}
	return Point{
		X: math.Round(p.X/grid) * grid,
		Y: math.Round(p.Y/grid) * grid,
	}
}
