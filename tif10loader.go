package demtile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MaxGridSamples is the largest grid, in samples, that a loader will allocate.
const MaxGridSamples = 1 << 28

// ErrAllocate is returned when the sample buffers for a grid cannot be
// allocated.
var ErrAllocate = errors.New("cannot allocate sample buffers")

var (
	tilesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demtile_tiles_loaded_total",
		Help: "The total number of tiles decoded successfully",
	})
	tileLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demtile_tile_load_failures_total",
		Help: "The total number of tiles that failed to decode, by stage",
	}, []string{"stage"})
)

// A Stage is a step of decoding a grid file.
type Stage string

const (
	StageOpen     Stage = "open"
	StageAllocate Stage = "allocate"
	StageRead     Stage = "read"
)

// A LoadError is returned when a grid file cannot be decoded.
type LoadError struct {
	Stage Stage
	Path  string
	Row   int // Only set for StageRead.
	Err   error
}

func (e *LoadError) Error() string {
	if e.Stage == StageRead {
		return fmt.Sprintf("%s: %s row %d: %v", e.Path, e.Stage, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// A TIF10Loader loads tiles stored as raw, headerless grids of 32-bit floats,
// one file per one-degree cell.
type TIF10Loader struct {
	format  FileFormat
	utmZone int
	fsys    fs.FS
	logger  *slog.Logger
}

// A TIF10LoaderOption sets an option on a TIF10Loader.
type TIF10LoaderOption func(*TIF10Loader)

// NewTIF10Loader returns a new TIF10Loader for format. utmZone is stored but
// not used when decoding.
func NewTIF10Loader(format FileFormat, utmZone int, options ...TIF10LoaderOption) *TIF10Loader {
	l := &TIF10Loader{
		format:  format,
		utmZone: utmZone,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// WithFS makes the loader open files from fsys instead of the operating
// system. Directories are then interpreted as slash-separated paths in fsys.
func WithFS(fsys fs.FS) TIF10LoaderOption {
	return func(l *TIF10Loader) {
		l.fsys = fsys
	}
}

func WithLogger(logger *slog.Logger) TIF10LoaderOption {
	return func(l *TIF10Loader) {
		l.logger = logger
	}
}

func (l *TIF10Loader) Format() FileFormat {
	return l.format
}

func (l *TIF10Loader) UTMZone() int {
	return l.utmZone
}

// LoadTile loads the tile whose southwest corner is at minLat, minLng from
// directory. An empty directory means the current directory. On failure no
// tile is returned and the error is a *LoadError.
func (l *TIF10Loader) LoadTile(directory string, minLat, minLng float64) (*Tile, error) {
	filename := l.path(directory, TIF10Filename(minLat, minLng))
	samples, err := l.decodeGrid(filename)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			tileLoadFailures.WithLabelValues(string(loadErr.Stage)).Inc()
		}
		l.logger.Warn("failed to load tile", "path", filename, "err", err)
		return nil, err
	}
	tilesLoaded.Inc()
	side := l.format.RawSamplesAcross
	return NewTile(side, side, samples), nil
}

// path returns the path of filename in directory.
func (l *TIF10Loader) path(directory, filename string) string {
	switch {
	case directory == "":
		return filename
	case l.fsys != nil:
		return path.Join(directory, filename)
	default:
		return filepath.Join(directory, filename)
	}
}

func (l *TIF10Loader) open(filename string) (io.ReadCloser, error) {
	if l.fsys != nil {
		return l.fsys.Open(filename)
	}
	return os.Open(filename)
}

// decodeGrid reads a side*side grid from filename one scanline at a time,
// replacing the format's no-data sentinel with NoDataElevation.
//
// The sentinel comparison is exact: a genuine sample that happens to equal the
// sentinel is indistinguishable from missing data in this format.
func (l *TIF10Loader) decodeGrid(filename string) ([]Elevation, error) {
	file, err := l.open(filename)
	if err != nil {
		return nil, &LoadError{Stage: StageOpen, Path: filename, Err: err}
	}
	defer file.Close()

	side := l.format.RawSamplesAcross
	if side <= 0 || side > MaxGridSamples/side {
		return nil, &LoadError{
			Stage: StageAllocate,
			Path:  filename,
			Err:   fmt.Errorf("%dx%d samples: %w", side, side, ErrAllocate),
		}
	}
	samples := make([]Elevation, side*side)
	scanline := make([]byte, 4*side)

	for row := range side {
		if _, err := io.ReadFull(file, scanline); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, &LoadError{Stage: StageRead, Path: filename, Row: row, Err: err}
		}
		dst := samples[row*side : (row+1)*side]
		for i := range dst {
			sample := math.Float32frombits(binary.NativeEndian.Uint32(scanline[4*i : 4*(i+1)]))
			if l.format.HasNoData && sample == l.format.NoData {
				dst[i] = NoDataElevation
			} else {
				dst[i] = Elevation(sample)
			}
		}
	}

	return samples, nil
}
