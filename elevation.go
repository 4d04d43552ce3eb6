package demtile

import "context"

// An Elevation is a height in meters relative to the reference datum.
type Elevation float32

// NoDataElevation is the canonical no-data sample. Every loader translates its
// source format's sentinel to this value.
const NoDataElevation Elevation = -32768

// A Coord is a sample coordinate.
type Coord struct {
	X int
	Y int
}

// A CellCoord identifies a one-degree cell by its southwest corner.
type CellCoord struct {
	Lat int
	Lng int
}

type Raster interface {
	Samples(ctx context.Context, coords []Coord) ([]float64, error)
	Scale() (int, int)
}

// A TileLoader loads the tile whose southwest corner is at minLat, minLng from
// directory.
type TileLoader interface {
	LoadTile(directory string, minLat, minLng float64) (*Tile, error)
}
