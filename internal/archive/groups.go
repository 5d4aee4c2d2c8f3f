// SPDX-License-Identifier: MIT

// Package archive splits the tile pyramid into zip-sized groups and
// writes the manifests and shell command lists for archiving the tiles
// in a research data repository.
package archive

import (
	"fmt"
	"sort"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// Group is one archive of tiles. The base group holds all tiles of
// zoom 0 to 5; every other group holds the zoom z tiles below one
// block tile of zoom z-6, so no group ever exceeds 4096 members.
type Group struct {
	Zoom        uint8        // zoom of the member tiles
	Block       tile.TileKey // zoom-(z-6) ancestor; WorldTile for the base group
	Filename    string
	Description string
	Tiles       []tile.TileKey
}

// baseGroupMaxZoom is the highest zoom bundled into the single base group.
const baseGroupMaxZoom = 5

// Groups partitions all non-empty tiles up to maxZoom into archive
// groups. With a nil empties set, every tile is a member. Groups come
// back sorted by (zoom, block x, block y); members are sorted by
// (zoom, x, y).
func Groups(maxZoom uint8, empty *empties.Set) []Group {
	var groups []Group

	var base []tile.TileKey
	for z := uint8(0); z <= baseGroupMaxZoom && z <= maxZoom; z++ {
		collectTiles(tile.WorldTile, z, empty, &base)
	}
	sortTiles(base)
	groups = append(groups, Group{
		Zoom:        0,
		Block:       tile.WorldTile,
		Filename:    "tiles__0_to_5",
		Description: "All non-empty tiles of levels 0 to 5.",
		Tiles:       base,
	})

	for z := uint8(6); z <= maxZoom; z++ {
		blockZoom := z - 6
		var blocks []tile.TileKey
		collectTiles(tile.WorldTile, blockZoom, empty, &blocks)
		sortTiles(blocks)
		for _, block := range blocks {
			var members []tile.TileKey
			collectTiles(block, z, empty, &members)
			sortTiles(members)
			_, bx, by := block.ZoomXY()
			minLon, minLat, maxLon, maxLat := block.GeoBounds()
			groups = append(groups, Group{
				Zoom:     z,
				Block:    block,
				Filename: fmt.Sprintf("tiles__%d__%d_%d_%d", z, blockZoom, bx, by),
				Description: fmt.Sprintf(
					"All non-empty tiles of level %d that lie within the block %d/%d of level %d. "+
						"This block covers the area between latitudes %.6f and %.6f "+
						"and longitudes %.6f and %.6f.",
					z, bx, by, blockZoom, maxLat, minLat, minLon, maxLon),
				Tiles: members,
			})
		}
	}
	return groups
}

// collectTiles appends all non-empty descendants of t at the given
// zoom, pruning empty subtrees.
func collectTiles(t tile.TileKey, zoom uint8, empty *empties.Set, out *[]tile.TileKey) {
	if empty != nil && empty.Contains(t) {
		return
	}
	if t.Zoom() == zoom {
		*out = append(*out, t)
		return
	}
	for _, child := range t.Children() {
		collectTiles(child, zoom, empty, out)
	}
}

func sortTiles(tiles []tile.TileKey) {
	sort.Slice(tiles, func(i, j int) bool {
		iz, ix, iy := tiles[i].ZoomXY()
		jz, jx, jy := tiles[j].ZoomXY()
		if iz != jz {
			return iz < jz
		}
		if ix != jx {
			return ix < jx
		}
		return iy < jy
	})
}
