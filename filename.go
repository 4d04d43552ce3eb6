package demtile

import (
	"fmt"
	"math"
)

// TIF10Filename returns the name of the file holding the cell whose southwest
// corner is at minLat, minLng, for example N47W122.tif. Coordinates are
// truncated toward zero.
func TIF10Filename(minLat, minLng float64) string {
	ns := 'N'
	if minLat < 0 {
		ns = 'S'
	}
	ew := 'E'
	if minLng < 0 {
		ew = 'W'
	}
	return fmt.Sprintf("%c%02d%c%03d.tif", ns, absInt(int(minLat)), ew, absInt(int(minLng)))
}

// fractionalDegree returns the hundredths of a degree in degree, rounded half
// away from zero.
func fractionalDegree(degree float64) int {
	excess := math.Abs(degree - math.Trunc(degree))
	return int(math.Round(100 * excess))
}

func absInt(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
