// SPDX-License-Identifier: MIT

// Package tile implements Web Mercator tile arithmetic. Tiles are
// identified by a compact TileKey; all parent/child relationships are
// derived arithmetically, no tree structure is ever materialized.
package tile

import (
	"fmt"
	"math"
	"math/bits"
)

// Size is the side length of a tile raster, in pixels.
const Size = 256

// MaxLatitude is the northernmost latitude visible in Web Mercator.
const MaxLatitude = 85.05112877980659

const earthCircumference = 2 * math.Pi * 6378137.0 // meters, WGS84 equator

// TileKey encodes a zoom/x/y tile into an uint64. Containing tiles get
// sorted before all their content; when sorting a set of tile keys,
// the resulting order is that of a depth-first pre-order tree traversal.
type TileKey uint64

// WorldTile is the tile for the entire planet, to the extent it is visible
// in the Web Mercator projection.
const WorldTile = TileKey(0)

// NoTile is a tile that does not actually exist. This is useful
// as an out-of-range value when iterating over a range of tiles.
const NoTile = TileKey(^uint64(0x1f)) // zoom 0, sorts after all valid tiles

// MakeTileKey returns a TileKey given the zoom/x/y tile coordinates.
func MakeTileKey(zoom uint8, x, y uint32) TileKey {
	if zoom > 29 || x >= 1<<zoom || y >= 1<<zoom {
		panic(fmt.Sprintf("invalid tile %d/%d/%d", zoom, x, y))
	}
	val := uint64(zoom)
	shift := uint8(64 - 2*zoom)
	for bit := uint8(0); bit < zoom; bit++ {
		xm := uint64((x>>bit)&1) << shift
		ym := uint64((y>>bit)&1) << (shift + 1)
		val |= xm | ym
		shift += 2
	}
	return TileKey(val)
}

// Zoom returns the zoom level of a TileKey.
func (t TileKey) Zoom() uint8 {
	return uint8(t) & 0x1f
}

// ZoomXY returns the zoom, x and y coordinates for a TileKey.
func (t TileKey) ZoomXY() (zoom uint8, x, y uint32) {
	val := uint64(t)
	zoom = uint8(val) & 0x1f
	shift := uint8(64 - 2*zoom)
	for bit := uint8(0); bit < zoom; bit++ {
		x |= (uint32(val>>shift) & 1) << bit
		y |= (uint32(val>>(shift+1)) & 1) << bit
		shift += 2
	}
	return zoom, x, y
}

// Contains returns true if this tile strictly contains `other`.
func (t TileKey) Contains(other TileKey) bool {
	zoom := t.Zoom()
	otherZoom := other.Zoom()
	if otherZoom > zoom {
		return t == other.ToZoom(zoom)
	}
	return false
}

// ToZoom returns the ancestor of t at zoom z, or a deep copy of t's
// position at a deeper zoom (the top-left descendant).
func (t TileKey) ToZoom(z uint8) TileKey {
	val := uint64(t)
	shift := uint8(64 - 2*z)
	return TileKey(((val >> shift) << shift) | uint64(z))
}

// Parent returns the tile one zoom level up whose footprint contains t.
// Calling Parent on the world tile is a programming error.
func (t TileKey) Parent() TileKey {
	zoom := t.Zoom()
	if zoom == 0 {
		panic("WorldTile has no parent")
	}
	return t.ToZoom(zoom - 1)
}

// Ancestor returns the tile `levels` zoom levels up, equivalent to
// applying Parent that many times.
func (t TileKey) Ancestor(levels uint8) TileKey {
	zoom := t.Zoom()
	if levels > zoom {
		panic(fmt.Sprintf("tile %v has no ancestor %d levels up", t, levels))
	}
	return t.ToZoom(zoom - levels)
}

// Children returns the four tiles at zoom+1 whose footprints partition t.
func (t TileKey) Children() [4]TileKey {
	zoom, x, y := t.ZoomXY()
	return [4]TileKey{
		MakeTileKey(zoom+1, 2*x, 2*y),
		MakeTileKey(zoom+1, 2*x+1, 2*y),
		MakeTileKey(zoom+1, 2*x, 2*y+1),
		MakeTileKey(zoom+1, 2*x+1, 2*y+1),
	}
}

// String formats the tile coordinates into a string.
func (t TileKey) String() string {
	if t == NoTile {
		return "NoTile"
	}

	zoom, x, y := t.ZoomXY()
	return fmt.Sprintf("%d/%d/%d", zoom, x, y)
}

// Path returns the relative file path of the tile's image in a tile tree.
func (t TileKey) Path() string {
	zoom, x, y := t.ZoomXY()
	return fmt.Sprintf("%d/%d/%d.png", zoom, x, y)
}

// Next returns the next TileKey in pre-order depth-first traversal order,
// or NoTile after we’ve reached the very last tile.
func (t TileKey) Next(maxZoom uint8) TileKey {
	zoom := uint8(t) & 0x1f

	// Descend into tree: x/y/0 → x/y/1 → ... → x/y/maxZoom, for any x and y.
	if zoom < maxZoom {
		return TileKey(uint64(t) & ^uint64(0x1f) | uint64(zoom+1))
	}

	shift := uint8(64 - 2*maxZoom)
	val := uint64(t) >> shift

	// Terminate after last tile.
	if bits.OnesCount64(val) == int(2*maxZoom) { // 2/3/3 → NoTile
		return NoTile
	}

	val = val + 1
	newZoom := maxZoom - uint8(bits.TrailingZeros64(val)/2)
	return TileKey(val<<shift | uint64(newZoom))
}

// Project maps a WGS84 longitude/latitude to the normalized [0,1)²
// Web Mercator plane. Latitudes beyond the projection's valid range
// are clamped, so the function is total.
func Project(lon, lat float64) (x, y float64) {
	if lat > MaxLatitude {
		lat = MaxLatitude
	} else if lat < -MaxLatitude {
		lat = -MaxLatitude
	}
	x = (lon + 180) / 360
	sinLat := math.Sin(lat * math.Pi / 180)
	y = 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)
	return x, y
}

// Unproject is the inverse of Project, mapping normalized plane
// coordinates back to WGS84 longitude/latitude in degrees.
func Unproject(x, y float64) (lon, lat float64) {
	lon = x*360 - 180
	lat = 90 - 360*math.Atan(math.Exp((y-0.5)*2*math.Pi))/math.Pi
	return lon, lat
}

// At returns the tile at the given zoom level whose footprint contains
// the given geographic point.
func At(lon, lat float64, zoom uint8) TileKey {
	x, y := Project(lon, lat)
	n := float64(uint32(1) << zoom)
	tx := uint32(math.Min(math.Floor(x*n), n-1))
	ty := uint32(math.Min(math.Floor(y*n), n-1))
	return MakeTileKey(zoom, tx, ty)
}

// Bounds returns the tile's footprint in the normalized plane.
// minY is the tile's northern edge since y grows southward.
func (t TileKey) Bounds() (minX, minY, maxX, maxY float64) {
	zoom, x, y := t.ZoomXY()
	n := float64(uint32(1) << zoom)
	return float64(x) / n, float64(y) / n, float64(x+1) / n, float64(y+1) / n
}

// GeoBounds returns the tile's geographic footprint in degrees.
func (t TileKey) GeoBounds() (minLon, minLat, maxLon, maxLat float64) {
	minX, minY, maxX, maxY := t.Bounds()
	minLon, maxLat = Unproject(minX, minY)
	maxLon, minLat = Unproject(maxX, maxY)
	return minLon, minLat, maxLon, maxLat
}

// TileLatitude returns the latitude of a web mercator tile’s northern edge,
// in radians. For degrees, multiply by 180/π.
func TileLatitude(zoom uint8, y uint32) float64 {
	yf := 1.0 - 2.0*float64(y)/float64(uint32(1)<<zoom)
	return math.Atan(math.Sinh(math.Pi * yf))
}

// GroundResolution returns the ground distance covered by one pixel of a
// tile raster at the given latitude and zoom level, in meters. The value
// depends only on latitude and zoom, never on the tile's x position, so
// horizontally adjacent tiles agree on the resolution along shared edges.
func GroundResolution(lat float64, zoom uint8) float64 {
	return math.Cos(lat*math.Pi/180) * earthCircumference / float64(uint64(Size)<<zoom)
}
