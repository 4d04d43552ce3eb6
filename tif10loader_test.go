package demtile_test

import (
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"

	"github.com/terrainkit/go-demtile"
)

const testNoData = -32767

var testFormat = demtile.FileFormat{
	Name:                  "test",
	RawSamplesAcross:      4,
	InMemorySamplesAcross: 4,
	DegreesAcross:         1,
	NoData:                testNoData,
	HasNoData:             true,
}

func gridBytes(samples []float32) []byte {
	data := make([]byte, 4*len(samples))
	for i, sample := range samples {
		binary.NativeEndian.PutUint32(data[4*i:4*(i+1)], math.Float32bits(sample))
	}
	return data
}

func writeGrid(t *testing.T, dir, filename string, samples []float32) {
	t.Helper()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, filename), gridBytes(samples), 0o666))
}

func tileSamples(tile *demtile.Tile) []demtile.Elevation {
	samples := make([]demtile.Elevation, 0, tile.Width()*tile.Height())
	for y := range tile.Height() {
		for x := range tile.Width() {
			samples = append(samples, tile.Get(x, y))
		}
	}
	return samples
}

func TestTIF10Loader_LoadTile(t *testing.T) {
	dir := t.TempDir()
	samples := make([]float32, 16)
	samples[6] = testNoData
	writeGrid(t, dir, "N47W122.tif", samples)

	tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile(dir, 47.6, -122.3)
	assert.NoError(t, err)
	assert.Equal(t, 4, tile.Width())
	assert.Equal(t, 4, tile.Height())

	expected := make([]demtile.Elevation, 16)
	expected[6] = demtile.NoDataElevation
	assert.Equal(t, expected, tileSamples(tile))
	assert.Equal(t, demtile.NoDataElevation, tile.Get(2, 1))
	assert.Equal(t, 1, tile.NoDataCount())
}

func TestTIF10Loader_SentinelSubstitution(t *testing.T) {
	values := []float32{
		testNoData,
		math.Nextafter32(testNoData, 0),
		math.Nextafter32(testNoData, -math.MaxFloat32),
		float32(math.Copysign(0, -1)),
		float32(math.NaN()),
		float32(math.Inf(1)),
		8848.86,
		-430.5,
		math.SmallestNonzeroFloat32,
		math.MaxFloat32,
		1,
		2,
		testNoData,
		3,
		4,
		5,
	}
	dir := t.TempDir()
	writeGrid(t, dir, "S33E018.tif", values)

	tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile(dir, -33.9, 18.4)
	assert.NoError(t, err)

	for i, actual := range tileSamples(tile) {
		if values[i] == testNoData {
			assert.Equal(t, demtile.NoDataElevation, actual)
		} else {
			assert.Equal(t, math.Float32bits(values[i]), math.Float32bits(float32(actual)))
		}
	}
}

func TestTIF10Loader_NoSentinel(t *testing.T) {
	format := testFormat
	format.HasNoData = false
	dir := t.TempDir()
	samples := make([]float32, 16)
	samples[0] = testNoData
	writeGrid(t, dir, "N00E000.tif", samples)

	tile, err := demtile.NewTIF10Loader(format, 0).LoadTile(dir, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, demtile.Elevation(testNoData), tile.Get(0, 0))
}

func TestTIF10Loader_MissingFile(t *testing.T) {
	tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile(t.TempDir(), 47, -122)
	assert.Zero(t, tile)
	assert.IsError(t, err, fs.ErrNotExist)

	var loadErr *demtile.LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, demtile.StageOpen, loadErr.Stage)
	assert.Equal(t, "N47W122.tif", filepath.Base(loadErr.Path))
}

func TestTIF10Loader_ShortFile(t *testing.T) {
	for _, tc := range []struct {
		name        string
		data        []byte
		expectedRow int
	}{
		{
			name:        "empty",
			data:        nil,
			expectedRow: 0,
		},
		{
			name:        "partial_first_row",
			data:        gridBytes(make([]float32, 3)),
			expectedRow: 0,
		},
		{
			name:        "two_and_a_half_rows",
			data:        gridBytes(make([]float32, 10)),
			expectedRow: 2,
		},
		{
			name:        "one_byte_short",
			data:        gridBytes(make([]float32, 16))[:63],
			expectedRow: 3,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			assert.NoError(t, os.WriteFile(filepath.Join(dir, "N01E002.tif"), tc.data, 0o666))

			tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile(dir, 1, 2)
			assert.Zero(t, tile)
			assert.IsError(t, err, io.ErrUnexpectedEOF)

			var loadErr *demtile.LoadError
			assert.True(t, errors.As(err, &loadErr))
			assert.Equal(t, demtile.StageRead, loadErr.Stage)
			assert.Equal(t, tc.expectedRow, loadErr.Row)
		})
	}
}

func TestTIF10Loader_TrailingData(t *testing.T) {
	dir := t.TempDir()
	writeGrid(t, dir, "N01E002.tif", make([]float32, 20))

	tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile(dir, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, 16, len(tileSamples(tile)))
}

func TestTIF10Loader_Allocate(t *testing.T) {
	for _, side := range []int{0, -1, 1 << 15} {
		format := testFormat
		format.RawSamplesAcross = side
		dir := t.TempDir()
		writeGrid(t, dir, "N01E002.tif", make([]float32, 16))

		tile, err := demtile.NewTIF10Loader(format, 0).LoadTile(dir, 1, 2)
		assert.Zero(t, tile)
		assert.IsError(t, err, demtile.ErrAllocate)

		var loadErr *demtile.LoadError
		assert.True(t, errors.As(err, &loadErr))
		assert.Equal(t, demtile.StageAllocate, loadErr.Stage)
	}
}

func TestTIF10Loader_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	writeGrid(t, dir, "S01W000.tif", make([]float32, 16))
	t.Chdir(dir)

	tile, err := demtile.NewTIF10Loader(testFormat, 0).LoadTile("", -1.2, -0.5)
	assert.NoError(t, err)
	assert.Equal(t, 4, tile.Width())
}

func TestTIF10Loader_WithFS(t *testing.T) {
	samples := make([]float32, 16)
	samples[15] = testNoData
	fsys := fstest.MapFS{
		"dem/N47W122.tif": &fstest.MapFile{Data: gridBytes(samples)},
	}
	loader := demtile.NewTIF10Loader(testFormat, 30, demtile.WithFS(fsys))
	assert.Equal(t, 30, loader.UTMZone())
	assert.Equal(t, testFormat, loader.Format())

	tile, err := loader.LoadTile("dem", 47.6, -122.3)
	assert.NoError(t, err)
	assert.Equal(t, demtile.NoDataElevation, tile.Get(3, 3))

	_, err = loader.LoadTile("dem", 48, -122)
	assert.IsError(t, err, fs.ErrNotExist)
}

// A closeCountingFS counts the files closed after being opened from fsys.
type closeCountingFS struct {
	fsys   fs.FS
	opens  int
	closes int
}

func (c *closeCountingFS) Open(name string) (fs.File, error) {
	file, err := c.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	c.opens++
	return &closeCountingFile{File: file, fsys: c}, nil
}

type closeCountingFile struct {
	fs.File
	fsys *closeCountingFS
}

func (f *closeCountingFile) Close() error {
	f.fsys.closes++
	return f.File.Close()
}

func TestTIF10Loader_ClosesFile(t *testing.T) {
	for _, tc := range []struct {
		name          string
		side          int
		data          []byte
		expectedError error
	}{
		{
			name: "complete",
			side: 4,
			data: gridBytes(make([]float32, 16)),
		},
		{
			name:          "empty",
			side:          4,
			data:          nil,
			expectedError: io.ErrUnexpectedEOF,
		},
		{
			name:          "short",
			side:          4,
			data:          gridBytes(make([]float32, 10)),
			expectedError: io.ErrUnexpectedEOF,
		},
		{
			name:          "allocate_zero",
			side:          0,
			data:          gridBytes(make([]float32, 16)),
			expectedError: demtile.ErrAllocate,
		},
		{
			name:          "allocate_too_large",
			side:          1 << 15,
			data:          gridBytes(make([]float32, 16)),
			expectedError: demtile.ErrAllocate,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fsys := &closeCountingFS{
				fsys: fstest.MapFS{
					"N01E002.tif": &fstest.MapFile{Data: tc.data},
				},
			}
			format := testFormat
			format.RawSamplesAcross = tc.side
			_, err := demtile.NewTIF10Loader(format, 0, demtile.WithFS(fsys)).LoadTile("", 1, 2)
			if tc.expectedError == nil {
				assert.NoError(t, err)
			} else {
				assert.IsError(t, err, tc.expectedError)
			}
			assert.Equal(t, 1, fsys.opens)
			assert.Equal(t, 1, fsys.closes)
		})
	}
}

func TestLoadError(t *testing.T) {
	err := &demtile.LoadError{Stage: demtile.StageRead, Path: "N47W122.tif", Row: 7, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "N47W122.tif: read row 7: unexpected EOF", err.Error())

	err = &demtile.LoadError{Stage: demtile.StageOpen, Path: "N47W122.tif", Err: fs.ErrNotExist}
	assert.Equal(t, "N47W122.tif: open: file does not exist", err.Error())
}
