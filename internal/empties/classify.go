// SPDX-License-Identifier: MIT

package empties

import (
	"context"
	"log"

	"github.com/paulmach/orb"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/srtm"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// Classify walks the tile tree from the world tile down to maxZoom and
// sends every empty tile with zoom ≥ minZoom to out. Because a tile's
// footprint strictly contains those of its descendants, a tile found
// empty makes its whole subtree empty; the subtree is then enumerated
// without any further geometry tests, which cuts the work down from the
// total tile count to the number of coastline tiles.
func Classify(ctx context.Context, lm *Landmass, minZoom, maxZoom uint8, out chan<- tile.TileKey, logger *log.Logger) error {
	defer close(out)

	c := &classifier{
		lm:      lm,
		minZoom: minZoom,
		maxZoom: maxZoom,
		out:     out,
		ctx:     ctx,
	}
	all := make([]int, lm.NumPolygons())
	for i := range all {
		all[i] = i
	}
	err := c.walk(tile.WorldTile, all)
	if logger != nil {
		logger.Printf("classified tiles up to zoom %d: %d empty, %d geometry tests",
			maxZoom, c.emptyCount, c.testCount)
	}
	return err
}

type classifier struct {
	lm      *Landmass
	minZoom uint8
	maxZoom uint8
	out     chan<- tile.TileKey
	ctx     context.Context

	emptyCount int64
	testCount  int64
}

// TileBound returns the tile's geographic footprint as an orb.Bound.
func TileBound(t tile.TileKey) orb.Bound {
	minLon, minLat, maxLon, maxLat := t.GeoBounds()
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// outsideCoverage reports whether the tile's footprint lies entirely
// outside the ±60° SRTM band. This is a pure latitude test; tiles above
// 60°N or below 60°S never need a polygon lookup.
func outsideCoverage(t tile.TileKey) bool {
	_, minLat, _, maxLat := t.GeoBounds()
	return minLat > srtm.MaxCoverageLat || maxLat < -srtm.MaxCoverageLat
}

func (c *classifier) walk(t tile.TileKey, candidates []int) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}

	b := TileBound(t)
	if outsideCoverage(t) {
		return c.emitSubtree(t)
	}

	// Narrow the candidate polygons to those whose bounding box touches
	// this footprint; descendants only ever need a subset of them.
	narrowed := make([]int, 0, len(candidates))
	hit := false
	for _, i := range candidates {
		if !c.lm.bounds[i].Intersects(b) {
			continue
		}
		narrowed = append(narrowed, i)
		if !hit {
			c.testCount++
			if polygonIntersectsBox(c.lm.polys[i], b) {
				hit = true
			}
		}
	}
	if !hit {
		return c.emitSubtree(t)
	}

	if t.Zoom() >= c.maxZoom {
		return nil
	}
	for _, child := range t.Children() {
		if err := c.walk(child, narrowed); err != nil {
			return err
		}
	}
	return nil
}

// emitSubtree sends t and all its descendants up to maxZoom.
func (c *classifier) emitSubtree(root tile.TileKey) error {
	zoom, x, y := root.ZoomXY()
	for z := zoom; z <= c.maxZoom; z++ {
		if z < c.minZoom {
			continue
		}
		shift := z - zoom
		for dy := uint32(0); dy < 1<<shift; dy++ {
			for dx := uint32(0); dx < 1<<shift; dx++ {
				select {
				case c.out <- tile.MakeTileKey(z, x<<shift+dx, y<<shift+dy):
					c.emptyCount++
				case <-c.ctx.Done():
					return c.ctx.Err()
				}
			}
		}
	}
	return nil
}
