package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_distance_km(t *testing.T) {
	t.Run("it should return exactly zero for identical coordinates", func(t *testing.T) {
		assert.Equal(t, float64(0), DistanceKm(52.52, 13.405, 52.52, 13.405))
	})

	t.Run("it should be symmetric", func(t *testing.T) {
		forward := DistanceKm(52.52, 13.405, 48.8566, 2.3522)
		backward := DistanceKm(48.8566, 2.3522, 52.52, 13.405)

		assert.InDelta(t, forward, backward, 1e-9)
	})

	t.Run("it should match the known Berlin to Paris distance", func(t *testing.T) {
		distance := DistanceKm(52.52, 13.405, 48.8566, 2.3522)

		assert.InDelta(t, 878, distance, 5)
	})

	t.Run("it should handle points across the antimeridian", func(t *testing.T) {
		distance := DistanceKm(0, 179.5, 0, -179.5)

		// One degree of longitude at the equator is about 111 km.
		assert.InDelta(t, 111, distance, 1)
	})
}
