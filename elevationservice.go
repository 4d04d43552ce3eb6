package demtile

import (
	"context"
	"math"
)

// An ElevationService returns elevations at geographic coordinates from the
// tiles in a TileCache.
type ElevationService struct {
	tileCache *TileCache
	format    FileFormat
}

func NewElevationService(tileCache *TileCache, format FileFormat) *ElevationService {
	return &ElevationService{
		tileCache: tileCache,
		format:    format,
	}
}

// Elevation returns the elevations at coords, which are longitude, latitude
// pairs in degrees. Missing elevations are represented by NaNs.
func (s *ElevationService) Elevation(ctx context.Context, coords [][]float64) ([]float64, error) {
	elevations := make([]float64, len(coords))

	// Group indexes by cell.
	indexesByCellCoord := make(map[CellCoord][]int)
	for index, coord := range coords {
		cellCoord := s.cellCoord(coord[1], coord[0])
		indexesByCellCoord[cellCoord] = append(indexesByCellCoord[cellCoord], index)
	}

	// Populate elevations one tile at a time.
	for cellCoord, indexes := range indexesByCellCoord {
		tile, err := s.tileCache.GetOrLoad(cellCoord.Lat, cellCoord.Lng)
		if err != nil {
			return nil, err
		}
		if tile == nil {
			for _, index := range indexes {
				elevations[index] = math.NaN()
			}
			continue
		}
		sampleCoords := make([][]float64, len(indexes))
		for i, index := range indexes {
			sampleCoords[i] = s.sampleCoord(cellCoord, coords[index][1], coords[index][0])
		}
		tileElevations, err := InterpolateBilinear(ctx, tile, sampleCoords)
		if err != nil {
			return nil, err
		}
		for i, index := range indexes {
			elevations[index] = tileElevations[i]
		}
	}

	return elevations, nil
}

// cellCoord returns the cell containing lat, lng.
func (s *ElevationService) cellCoord(lat, lng float64) CellCoord {
	return CellCoord{
		Lat: int(math.Floor(lat)),
		Lng: int(math.Floor(lng)),
	}
}

// sampleCoord returns the fractional sample coordinate of lat, lng in the tile
// at cellCoord. Row 0 is the northern edge of the tile.
func (s *ElevationService) sampleCoord(cellCoord CellCoord, lat, lng float64) []float64 {
	samplesPerDegree := s.format.SamplesPerDegree()
	maxLat := float64(cellCoord.Lat) + s.format.DegreesAcross
	return []float64{
		(lng - float64(cellCoord.Lng)) * samplesPerDegree,
		(maxLat - lat) * samplesPerDegree,
	}
}
