package demtile

import (
	"errors"
	"fmt"
)

// ErrUnknownFileFormat is returned by ParseFileFormat for unknown names.
var ErrUnknownFileFormat = errors.New("unknown file format")

// A FileFormat describes the on-disk layout of one source of elevation data.
type FileFormat struct {
	Name string

	// RawSamplesAcross is the side length of the grid as stored on disk. It is
	// zero for formats whose size varies with latitude.
	RawSamplesAcross int

	// InMemorySamplesAcross is the side length once any overlap border has
	// been removed.
	InMemorySamplesAcross int

	// DegreesAcross is the extent of one file in degrees.
	DegreesAcross float64

	// UTM is set for formats addressed in UTM coordinates rather than degrees.
	UTM bool

	// NoData is the source sentinel for missing samples. It is only
	// meaningful when HasNoData is set.
	NoData    float32
	HasNoData bool
}

var (
	FileFormatHGT = FileFormat{
		Name:                  "SRTM",
		RawSamplesAcross:      1201,
		InMemorySamplesAcross: 1201,
		DegreesAcross:         1,
		NoData:                -32768,
		HasNoData:             true,
	}
	FileFormatHGT30 = FileFormat{
		Name:                  "SRTM30",
		RawSamplesAcross:      3601,
		InMemorySamplesAcross: 3601,
		DegreesAcross:         1,
		NoData:                -32768,
		HasNoData:             true,
	}
	FileFormatTIF10 = FileFormat{
		Name:                  "IECA",
		RawSamplesAcross:      10812,
		InMemorySamplesAcross: 10801,
		DegreesAcross:         1,
		NoData:                -32767,
		HasNoData:             true,
	}
	FileFormatBIL25 = FileFormat{
		Name:                  "IGN",
		RawSamplesAcross:      4453,
		InMemorySamplesAcross: 4453,
		DegreesAcross:         1,
	}
	FileFormatNED1Zip = FileFormat{
		Name:                  "NED1-ZIP",
		RawSamplesAcross:      3612,
		InMemorySamplesAcross: 3601,
		DegreesAcross:         1,
	}
	FileFormatNED13 = FileFormat{
		Name:                  "NED13",
		RawSamplesAcross:      10812,
		InMemorySamplesAcross: 10801,
		DegreesAcross:         1,
	}
	FileFormatNED13Zip = FileFormat{
		Name:                  "NED13-ZIP",
		RawSamplesAcross:      10812,
		InMemorySamplesAcross: 10801,
		DegreesAcross:         1,
	}
	FileFormatNED19 = FileFormat{
		Name:                  "NED19",
		RawSamplesAcross:      8112,
		InMemorySamplesAcross: 8101,
		DegreesAcross:         0.25,
	}
	FileFormatGLO30 = FileFormat{
		Name:                  "GLO30",
		InMemorySamplesAcross: 3601,
		DegreesAcross:         1,
	}
	FileFormatFABDEM = FileFormat{
		Name:                  "FABDEM",
		InMemorySamplesAcross: 3601,
		DegreesAcross:         1,
	}
	// 3DEP tiles are 10km UTM squares; DegreesAcross is one unit per tile.
	FileFormat3DEP1M = FileFormat{
		Name:                  "3DEP-1M",
		RawSamplesAcross:      10012,
		InMemorySamplesAcross: 10001,
		DegreesAcross:         1,
		UTM:                   true,
	}
	FileFormatLIDAR = FileFormat{
		Name:                  "LIDAR",
		RawSamplesAcross:      10000,
		InMemorySamplesAcross: 10000,
		DegreesAcross:         0.1,
	}
)

var fileFormatsByName = map[string]FileFormat{
	FileFormatHGT.Name:      FileFormatHGT,
	FileFormatHGT30.Name:    FileFormatHGT30,
	FileFormatTIF10.Name:    FileFormatTIF10,
	"TIF10":                 FileFormatTIF10,
	FileFormatBIL25.Name:    FileFormatBIL25,
	FileFormatNED1Zip.Name:  FileFormatNED1Zip,
	FileFormatNED13.Name:    FileFormatNED13,
	FileFormatNED13Zip.Name: FileFormatNED13Zip,
	FileFormatNED19.Name:    FileFormatNED19,
	FileFormatGLO30.Name:    FileFormatGLO30,
	FileFormatFABDEM.Name:   FileFormatFABDEM,
	FileFormat3DEP1M.Name:   FileFormat3DEP1M,
	FileFormatLIDAR.Name:    FileFormatLIDAR,
}

// ParseFileFormat returns the FileFormat with the given name.
func ParseFileFormat(name string) (FileFormat, error) {
	fileFormat, ok := fileFormatsByName[name]
	if !ok {
		return FileFormat{}, fmt.Errorf("%s: %w", name, ErrUnknownFileFormat)
	}
	return fileFormat, nil
}

// SamplesPerDegree returns the number of in-memory samples per degree, not
// counting the sample shared with the neighboring tile.
func (f FileFormat) SamplesPerDegree() float64 {
	return float64(f.InMemorySamplesAcross-1) / f.DegreesAcross
}

func (f FileFormat) String() string {
	return f.Name
}
