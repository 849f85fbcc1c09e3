package raster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Contains reports whether the point lies inside an areal geometry.
// Non-areal geometries never contain a point.
func Contains(geometry orb.Geometry, point orb.Point) bool {
	switch g := geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, point)
	case orb.Ring:
		return planar.RingContains(g, point)
	case orb.Bound:
		return g.Contains(point)
	case orb.Collection:
		for _, child := range g {
			if Contains(child, point) {
				return true
			}
		}
	}
	return false
}
