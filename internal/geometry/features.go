package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"housingadmin/console/internal/models"
)

// Map is what the registrations map endpoint returns.
type Map struct {
	Features *geojson.FeatureCollection `json:"features"`
	// Bound is [minLng, minLat, maxLng, maxLat], nil without located points.
	Bound []float64 `json:"bound"`
	// Skipped counts registrations without coordinates.
	Skipped int `json:"skipped"`
}

// PropertyPoint converts a located registration to lng/lat order.
func PropertyPoint(p models.Property) (orb.Point, bool) {
	if !p.HasLocation() {
		return orb.Point{}, false
	}
	return orb.Point{*p.Longitude, *p.Latitude}, true
}

// BuildMap turns registrations into point features. Registrations without
// coordinates are counted and left out.
func BuildMap(props []models.Property) Map {
	fc := geojson.NewFeatureCollection()
	m := Map{Features: fc}

	var bound orb.Bound
	located := 0
	for _, p := range props {
		pt, ok := PropertyPoint(p)
		if !ok {
			m.Skipped++
			continue
		}

		feature := geojson.NewFeature(pt)
		feature.ID = p.ID
		feature.Properties = geojson.Properties{
			"id":           p.ID,
			"address":      p.Address,
			"propertyType": string(p.PropertyType),
			"status":       string(p.Status),
			"userId":       p.UserID,
		}
		fc.Append(feature)

		if located == 0 {
			bound = pt.Bound()
		} else {
			bound = bound.Extend(pt)
		}
		located++
	}

	if located > 0 {
		m.Bound = []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
	}
	return m
}

// StatusAreas adds one hull feature per status that has at least three
// located registrations.
func StatusAreas(props []models.Property) []*geojson.Feature {
	byStatus := make(map[models.RegistrationStatus][]orb.Point)
	for _, p := range props {
		if pt, ok := PropertyPoint(p); ok {
			byStatus[p.Status] = append(byStatus[p.Status], pt)
		}
	}

	var features []*geojson.Feature
	for _, status := range models.RegistrationStatuses {
		points := byStatus[status]
		hull := ConvexHull(points)
		if hull == nil {
			continue
		}
		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"status":      string(status),
			"point_count": len(points),
			"hull_type":   "convex",
		}
		features = append(features, feature)
	}
	return features
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// ConvexHull returns the closed counter-clockwise hull of points, or nil
// when they do not span an area.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := append([]orb.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// hull ends with its first point, so a triangle has four entries
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}
