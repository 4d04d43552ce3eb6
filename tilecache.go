package demtile

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaxLegalElevationDiff is the largest step, in meters, allowed between a
// sample and any of its 4-neighbors before the higher sample is treated as a
// spike.
const MaxLegalElevationDiff = 1000

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	tileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_tile_cache_hits_total",
		Help: "The total number of hits on the tile cache",
	})
	tileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_tile_cache_misses_total",
		Help: "The total number of misses on the tile cache",
	})
	tileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_tile_cache_evictions_total",
		Help: "The total number of evictions from the tile cache",
	})
)

// A TileCache loads tiles through a TileLoader and keeps the most recently used
// ones in memory. It is safe for concurrent use.
type TileCache struct {
	mutex               sync.Mutex
	loader              TileLoader
	directory           string
	cacheSize           int
	neighborEdgeLoading bool
	spikeFilter         bool
	logger              *slog.Logger
	missingTiles        sync.Map
	maxElevations       sync.Map
	tileCache           *lru.Cache[CellCoord, *Tile]
}

// A TileCacheOption sets an option on a TileCache.
type TileCacheOption func(*TileCache)

// NewTileCache returns a new TileCache that loads tiles from directory.
func NewTileCache(loader TileLoader, directory string, options ...TileCacheOption) (*TileCache, error) {
	c := &TileCache{
		loader:      loader,
		directory:   directory,
		cacheSize:   8,
		spikeFilter: true,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(c)
	}

	var err error
	c.tileCache, err = lru.NewWithEvict(c.cacheSize, func(CellCoord, *Tile) {
		tileCacheEvictions.Inc()
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func WithCacheSize(cacheSize int) TileCacheOption {
	return func(c *TileCache) {
		c.cacheSize = cacheSize
	}
}

func WithCacheLogger(logger *slog.Logger) TileCacheOption {
	return func(c *TileCache) {
		c.logger = logger
	}
}

// WithNeighborEdgeLoading makes the cache overwrite each tile's last row and
// last column with the first row of its southern neighbor and the first
// column of its eastern neighbor, so that overlapping samples are identical.
func WithNeighborEdgeLoading(neighborEdgeLoading bool) TileCacheOption {
	return func(c *TileCache) {
		c.neighborEdgeLoading = neighborEdgeLoading
	}
}

func WithSpikeFilter(spikeFilter bool) TileCacheOption {
	return func(c *TileCache) {
		c.spikeFilter = spikeFilter
	}
}

// GetOrLoad returns the tile whose southwest corner is at minLat, minLng. If
// the cell's file is missing or cannot be decoded it returns nil, nil. Missing
// files are remembered; undecodable files are retried on the next call.
func (c *TileCache) GetOrLoad(minLat, minLng int) (*Tile, error) {
	cellCoord := CellCoord{Lat: minLat, Lng: minLng}

	if _, ok := c.missingTiles.Load(cellCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := c.tileCache.Get(cellCoord); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.missingTiles.Load(cellCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	if tile, ok := c.tileCache.Get(cellCoord); ok {
		tileCacheHits.Inc()
		return tile, nil
	}

	tileCacheMisses.Inc()

	switch tile, err := c.LoadWithoutCaching(minLat, minLng); {
	case errors.Is(err, fs.ErrNotExist):
		c.missingTiles.Store(cellCoord, struct{}{})
		c.maxElevations.Store(cellCoord, Elevation(0))
		missingTileCacheMisses.Inc()
		return nil, nil
	case errors.As(err, new(*LoadError)):
		c.logger.Warn("no data for cell", "lat", minLat, "lng", minLng, "err", err)
		c.maxElevations.Store(cellCoord, Elevation(0))
		return nil, nil
	case err != nil:
		return nil, err
	default:
		c.tileCache.Add(cellCoord, tile)
		c.maxElevations.Store(cellCoord, tile.MaxElevation())
		return tile, nil
	}
}

// MaxElevation returns the maximum elevation of the cell at lat, lng if the
// cell has been loaded. Cells without a file have a maximum elevation of 0.
func (c *TileCache) MaxElevation(lat, lng int) (Elevation, bool) {
	value, ok := c.maxElevations.Load(CellCoord{Lat: lat, Lng: lng})
	if !ok {
		return 0, false
	}
	return value.(Elevation), true
}

// LoadWithoutCaching loads the tile at minLat, minLng and applies the cache's
// edge and spike corrections, bypassing the cache.
func (c *TileCache) LoadWithoutCaching(minLat, minLng int) (*Tile, error) {
	tile, err := c.loader.LoadTile(c.directory, float64(minLat), float64(minLng))
	if err != nil {
		return nil, err
	}

	if c.neighborEdgeLoading {
		c.copyNeighborEdges(tile, minLat, minLng)
	}

	if c.spikeFilter {
		if removed := removeSpikes(tile); removed > 0 {
			c.logger.Debug("removed spikes", "lat", minLat, "lng", minLng, "count", removed)
		}
	}
	tile.RecomputeMaxElevation()

	c.logger.Debug("loaded tile", "lat", minLat, "lng", minLng, "maxElevation", tile.MaxElevation())

	return tile, nil
}

// copyNeighborEdges copies the top row of the southern neighbor into tile's
// bottom row and the left column of the eastern neighbor into tile's right
// column. The bottom right sample is left ambiguous.
func (c *TileCache) copyNeighborEdges(tile *Tile, minLat, minLng int) {
	if neighbor, err := c.loader.LoadTile(c.directory, float64(minLat-1), float64(minLng)); err == nil {
		for x := range min(tile.Width(), neighbor.Width()) {
			tile.Set(x, tile.Height()-1, neighbor.Get(x, 0))
		}
	}

	rightLng := minLng + 1
	if minLng == 179 {
		rightLng = -180
	}
	if neighbor, err := c.loader.LoadTile(c.directory, float64(minLat), float64(rightLng)); err == nil {
		for y := range min(tile.Height(), neighbor.Height()) {
			tile.Set(tile.Width()-1, y, neighbor.Get(0, y))
		}
	}
}

// removeSpikes replaces every sample that is more than MaxLegalElevationDiff
// above one of its 4-neighbors with NoDataElevation. It returns the number of
// samples removed.
func removeSpikes(tile *Tile) int {
	removed := 0
	for y := range tile.Height() {
		for x := range tile.Width() {
			elevation := tile.Get(x, y)
			if elevation == NoDataElevation {
				continue
			}
			for _, neighbor := range [...]Coord{{X: x + 1, Y: y}, {X: x, Y: y + 1}, {X: x - 1, Y: y}, {X: x, Y: y - 1}} {
				if !tile.InExtents(neighbor.X, neighbor.Y) {
					continue
				}
				neighborElevation := tile.Get(neighbor.X, neighbor.Y)
				if neighborElevation != NoDataElevation && elevation-neighborElevation > MaxLegalElevationDiff {
					tile.Set(x, y, NoDataElevation)
					removed++
					break
				}
			}
		}
	}
	return removed
}
