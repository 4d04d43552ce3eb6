package demtile

import (
	"context"
	"math"
)

// A Tile is the in-memory elevation grid for one cell. Samples are stored row
// major with row 0 at the northern edge.
type Tile struct {
	width        int
	height       int
	samples      []Elevation
	maxElevation Elevation
}

// NewTile returns a new Tile that takes ownership of samples, which must have
// length width*height. The caller must not use samples afterwards.
func NewTile(width, height int, samples []Elevation) *Tile {
	t := &Tile{
		width:   width,
		height:  height,
		samples: samples,
	}
	t.RecomputeMaxElevation()
	return t
}

func (t *Tile) Width() int {
	return t.width
}

func (t *Tile) Height() int {
	return t.height
}

// InExtents returns whether x, y is inside t.
func (t *Tile) InExtents(x, y int) bool {
	return 0 <= x && x < t.width && 0 <= y && y < t.height
}

// Get returns the sample at x, y.
func (t *Tile) Get(x, y int) Elevation {
	return t.samples[y*t.width+x]
}

// Set sets the sample at x, y. It does not update the maximum elevation, call
// RecomputeMaxElevation after a batch of changes.
func (t *Tile) Set(x, y int, elevation Elevation) {
	t.samples[y*t.width+x] = elevation
}

// MaxElevation returns the highest sample in t, or NoDataElevation if t has no
// data at all.
func (t *Tile) MaxElevation() Elevation {
	return t.maxElevation
}

func (t *Tile) RecomputeMaxElevation() {
	t.maxElevation = NoDataElevation
	for _, sample := range t.samples {
		if sample != NoDataElevation && (t.maxElevation == NoDataElevation || sample > t.maxElevation) {
			t.maxElevation = sample
		}
	}
}

// NoDataCount returns the number of no-data samples in t.
func (t *Tile) NoDataCount() int {
	n := 0
	for _, sample := range t.samples {
		if sample == NoDataElevation {
			n++
		}
	}
	return n
}

// Samples returns the samples at coords. Coordinates outside t and no-data
// samples are represented by NaNs.
func (t *Tile) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))
	for i, coord := range coords {
		if !t.InExtents(coord.X, coord.Y) {
			samples[i] = math.NaN()
			continue
		}
		switch sample := t.Get(coord.X, coord.Y); sample {
		case NoDataElevation:
			samples[i] = math.NaN()
		default:
			samples[i] = float64(sample)
		}
	}
	return samples, nil
}

// Scale returns t's scale. Tiles are addressed in samples.
func (t *Tile) Scale() (int, int) {
	return 1, 1
}
