package demtile

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestTIF10Filename(t *testing.T) {
	for _, tc := range []struct {
		minLat   float64
		minLng   float64
		expected string
	}{
		{minLat: 47.6, minLng: -122.3, expected: "N47W122.tif"},
		{minLat: -33.9, minLng: 18.4, expected: "S33E018.tif"},
		{minLat: 0, minLng: 0, expected: "N00E000.tif"},
		{minLat: -1.2, minLng: -0.5, expected: "S01W000.tif"},
		{minLat: 36, minLng: -5, expected: "N36W005.tif"},
		{minLat: -89.99, minLng: 179.99, expected: "S89E179.tif"},
		{minLat: 89, minLng: -180, expected: "N89W180.tif"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, TIF10Filename(tc.minLat, tc.minLng))
		})
	}
}

func TestFractionalDegree(t *testing.T) {
	for _, tc := range []struct {
		degree   float64
		expected int
	}{
		{degree: 47.60, expected: 60},
		{degree: -47.60, expected: 60},
		{degree: 47.004, expected: 0},
		{degree: 47, expected: 0},
		{degree: 0.5, expected: 50},
		{degree: -47.125, expected: 13}, // Exactly 12.5 hundredths, rounded away from zero.
		{degree: 47.995, expected: 99},  // 47.995 is stored as 47.99499999999999744.
		{degree: -47.995, expected: 99},
		{degree: 47.9951, expected: 100},
	} {
		assert.Equal(t, tc.expected, fractionalDegree(tc.degree))
	}
}
