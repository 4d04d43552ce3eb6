// Package render draws elevation tiles as colored preview images.
package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/terrainkit/go-demtile"
)

// A stop is a color at a relative position in the elevation range.
type stop struct {
	color    colorful.Color
	position float64
}

// hypsometric runs from lowland green through brown to snow.
var hypsometric = []stop{
	{color: colorful.Color{R: 0.16, G: 0.44, B: 0.21}, position: 0},
	{color: colorful.Color{R: 0.58, G: 0.71, B: 0.35}, position: 0.25},
	{color: colorful.Color{R: 0.87, G: 0.80, B: 0.52}, position: 0.5},
	{color: colorful.Color{R: 0.55, G: 0.38, B: 0.24}, position: 0.75},
	{color: colorful.Color{R: 1, G: 1, B: 1}, position: 1},
}

// Render returns an image of tile with elevations mapped onto a hypsometric
// color ramp between the tile's lowest and highest samples. No-data samples
// are transparent. If size is positive the image is resized to size pixels
// across.
func Render(tile *demtile.Tile, size int) *image.NRGBA {
	minElevation, maxElevation := elevationRange(tile)
	img := image.NewNRGBA(image.Rect(0, 0, tile.Width(), tile.Height()))
	for y := range tile.Height() {
		for x := range tile.Width() {
			elevation := tile.Get(x, y)
			if elevation == demtile.NoDataElevation {
				continue
			}
			var t float64
			if maxElevation > minElevation {
				t = float64(elevation-minElevation) / float64(maxElevation-minElevation)
			}
			r, g, b := rampColor(t).Clamped().RGB255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	if size > 0 && size != tile.Width() {
		return imaging.Resize(img, size, 0, imaging.Lanczos)
	}
	return img
}

// Save writes img to filename. The format is chosen from the extension.
func Save(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

// elevationRange returns the lowest and highest valid samples in tile.
func elevationRange(tile *demtile.Tile) (demtile.Elevation, demtile.Elevation) {
	minElevation, maxElevation := demtile.NoDataElevation, demtile.NoDataElevation
	for y := range tile.Height() {
		for x := range tile.Width() {
			elevation := tile.Get(x, y)
			switch {
			case elevation == demtile.NoDataElevation:
			case minElevation == demtile.NoDataElevation:
				minElevation, maxElevation = elevation, elevation
			default:
				minElevation = min(minElevation, elevation)
				maxElevation = max(maxElevation, elevation)
			}
		}
	}
	return minElevation, maxElevation
}

// rampColor returns the color at t, in the range 0 to 1, blending adjacent
// stops in Lab space.
func rampColor(t float64) colorful.Color {
	for i := 1; i < len(hypsometric); i++ {
		lo, hi := hypsometric[i-1], hypsometric[i]
		if t <= hi.position {
			return lo.color.BlendLab(hi.color, (t-lo.position)/(hi.position-lo.position))
		}
	}
	return hypsometric[len(hypsometric)-1].color
}
