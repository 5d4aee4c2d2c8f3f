// SPDX-License-Identifier: MIT

// Package empties decides which Web Mercator tiles contain no terrain to
// render. A tile is empty when its footprint lies entirely outside the
// SRTM ±60° coverage band, or when it does not touch any landmass
// polygon at all. Classification errs toward rendering: any ambiguous
// contact between a tile and a coastline counts as non-empty.
package empties

import (
	"fmt"
	"io"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Landmass holds the land outline polygons, loaded once per run and
// immutable afterwards.
type Landmass struct {
	polys  []orb.Polygon
	bounds []orb.Bound // bounding box per polygon, for cheap rejection
}

// LoadLandmass reads a GeoJSON Feature or FeatureCollection and keeps
// its Polygon and MultiPolygon geometries. Features of any other
// geometry kind are skipped with a log note; an input without a single
// usable polygon is an error.
func LoadLandmass(r io.Reader, logger *log.Logger) (*Landmass, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var features []*geojson.Feature
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		features = fc.Features
	} else if f, err := geojson.UnmarshalFeature(data); err == nil {
		features = []*geojson.Feature{f}
	} else {
		return nil, fmt.Errorf("landmass input is neither a GeoJSON FeatureCollection nor a Feature: %w", err)
	}

	lm := &Landmass{}
	skipped := 0
	for _, f := range features {
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			lm.add(geom)
		case orb.MultiPolygon:
			for _, p := range geom {
				lm.add(p)
			}
		default:
			skipped++
		}
	}
	if skipped > 0 && logger != nil {
		logger.Printf("skipped %d features with non-polygon geometry", skipped)
	}
	if len(lm.polys) == 0 {
		return nil, fmt.Errorf("landmass input contains no Polygon or MultiPolygon features")
	}
	return lm, nil
}

func (lm *Landmass) add(p orb.Polygon) {
	lm.polys = append(lm.polys, p)
	lm.bounds = append(lm.bounds, p.Bound())
}

// NumPolygons returns the number of outline polygons.
func (lm *Landmass) NumPolygons() int {
	return len(lm.polys)
}

// Intersects reports whether any landmass polygon touches the given
// geographic bounding box. The test is exact up to float64: a polygon
// edge running exactly along the box edge still counts as touching,
// which keeps the classification conservative. A box lying entirely
// inside a polygon hole does not intersect.
func (lm *Landmass) Intersects(b orb.Bound) bool {
	for i := range lm.polys {
		if !lm.bounds[i].Intersects(b) {
			continue
		}
		if polygonIntersectsBox(lm.polys[i], b) {
			return true
		}
	}
	return false
}

// polygonIntersectsBox tests one polygon (with holes) against a box.
// Three cases cover all geometric configurations:
//  1. some ring segment crosses or touches the box,
//  2. a box corner lies inside the polygon (box fully within land), or
//  3. a ring vertex lies inside the box (ring fully within box).
//
// Case 2 respects holes: planar.PolygonContains excludes points inside
// inner rings, so a box floating in a lake is not an intersection.
func polygonIntersectsBox(p orb.Polygon, b orb.Bound) bool {
	for _, ring := range p {
		for i := 1; i < len(ring); i++ {
			if segmentTouchesBox(ring[i-1], ring[i], b) {
				return true
			}
		}
	}
	for _, corner := range []orb.Point{
		b.Min,
		{b.Max[0], b.Min[1]},
		b.Max,
		{b.Min[0], b.Max[1]},
	} {
		if planar.PolygonContains(p, corner) {
			return true
		}
	}
	return false
}

// segmentTouchesBox reports whether the segment from a to b touches an
// axis-aligned box, boundary included.
func segmentTouchesBox(a, b orb.Point, box orb.Bound) bool {
	if box.Contains(a) || box.Contains(b) {
		return true
	}
	// Trivial rejection: the segment's bounding box misses the box.
	if max(a[0], b[0]) < box.Min[0] || min(a[0], b[0]) > box.Max[0] ||
		max(a[1], b[1]) < box.Min[1] || min(a[1], b[1]) > box.Max[1] {
		return false
	}
	// Both endpoints outside: the segment intersects the box iff it
	// crosses one of the four box edges.
	corners := [4]orb.Point{
		box.Min,
		{box.Max[0], box.Min[1]},
		box.Max,
		{box.Min[0], box.Max[1]},
	}
	for i := 0; i < 4; i++ {
		if segmentsIntersect(a, b, corners[i], corners[(i+1)%4]) {
			return true
		}
	}
	return false
}

// segmentsIntersect reports whether segments pq and rs share a point,
// touching endpoints included.
func segmentsIntersect(p, q, r, s orb.Point) bool {
	d1 := cross(r, s, p)
	d2 := cross(r, s, q)
	d3 := cross(p, q, r)
	d4 := cross(p, q, s)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(r, s, p)) ||
		(d2 == 0 && onSegment(r, s, q)) ||
		(d3 == 0 && onSegment(p, q, r)) ||
		(d4 == 0 && onSegment(p, q, s))
}

// cross returns the cross product of (b-a) × (p-a).
func cross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// onSegment reports whether p, known to be collinear with segment ab,
// lies within its extent.
func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
