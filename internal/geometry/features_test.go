package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingadmin/console/internal/models"
)

func located(id string, lat, lng float64, status models.RegistrationStatus) models.Property {
	return models.Property{ID: id, Latitude: &lat, Longitude: &lng, Status: status, Address: id + " Main St"}
}

func TestBuildMap(t *testing.T) {
	props := []models.Property{
		located("p1", 6.9, 79.8, models.StatusPending),
		{ID: "p2", Status: models.StatusApproved},
		located("p3", 7.3, 80.6, models.StatusApproved),
	}

	m := BuildMap(props)
	require.Len(t, m.Features.Features, 2)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, []float64{79.8, 6.9, 80.6, 7.3}, m.Bound)

	first := m.Features.Features[0]
	assert.Equal(t, orb.Point{79.8, 6.9}, first.Geometry)
	assert.Equal(t, "Pending", first.Properties["status"])

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"FeatureCollection"`)
}

func TestBuildMap_NothingLocated(t *testing.T) {
	m := BuildMap([]models.Property{{ID: "p1"}})
	assert.Empty(t, m.Features.Features)
	assert.Nil(t, m.Bound)
	assert.Equal(t, 1, m.Skipped)
}

func TestConvexHull(t *testing.T) {
	square := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}}
	hull := ConvexHull(square)
	require.NotNil(t, hull)
	assert.Len(t, hull, 5)
	assert.True(t, hull.Closed())
	assert.NotContains(t, hull, orb.Point{0.5, 0.5})

	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}, {2, 2}}))
}

func TestStatusAreas(t *testing.T) {
	props := []models.Property{
		located("a", 0, 0, models.StatusPending),
		located("b", 0, 1, models.StatusPending),
		located("c", 1, 1, models.StatusPending),
		located("d", 5, 5, models.StatusApproved),
	}
	areas := StatusAreas(props)
	require.Len(t, areas, 1)
	assert.Equal(t, "Pending", areas[0].Properties["status"])
	assert.IsType(t, orb.Polygon{}, areas[0].Geometry)
}
