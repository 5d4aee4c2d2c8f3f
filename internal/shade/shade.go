// SPDX-License-Identifier: MIT

// Package shade renders elevation rasters into hillshaded grayscale
// tiles. A fixed light source is used for every tile so that shading is
// continuous across tile edges.
package shade

import (
	"image"
	"math"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/srtm"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// The illumination model is fixed for the whole pyramid: light from
// azimuth 60° (east-northeast) at 45° above the horizon.
const (
	Azimuth  = 60.0
	Altitude = 45.0
)

// FlatShade is the output value of a perfectly flat pixel, and of every
// "no data" pixel. The shared empty-tile placeholder is filled with this
// value, so a rendered all-flat tile and the placeholder are identical.
var FlatShade = shadePixel(0, 0)

// shadePixel maps an elevation gradient (dz/dx eastward, dz/dy
// southward, both in meters per meter) to an 8-bit luminance.
func shadePixel(dzdx, dzdy float64) uint8 {
	zenith := (90 - Altitude) * math.Pi / 180
	azimuthMath := 360 - Azimuth + 90
	if azimuthMath >= 360 {
		azimuthMath -= 360
	}
	azimuthRad := azimuthMath * math.Pi / 180

	slope := math.Atan(math.Hypot(dzdx, dzdy))
	aspect := math.Atan2(dzdy, -dzdx)
	shaded := math.Cos(zenith)*math.Cos(slope) +
		math.Sin(zenith)*math.Sin(slope)*math.Cos(azimuthRad-aspect)

	// Map [-1,1] to [0,255], then lighten so that even steep shadowed
	// slopes keep the overlay readable.
	v := uint8(255 * (shaded + 1) / 2)
	return 255 - (255-v)/3
}

// neighbor reads a payload-coordinate pixel for the gradient window,
// clamping coordinates at the raster edge and substituting fallback for
// no-data values.
func neighbor(s *srtm.Samples, px, py int, fallback float64) float64 {
	lo, hi := -s.Margin, s.Size+s.Margin-1
	if px < lo {
		px = lo
	} else if px > hi {
		px = hi
	}
	if py < lo {
		py = lo
	} else if py > hi {
		py = hi
	}
	if v := s.At(px, py); !math.IsNaN(v) {
		return v
	}
	return fallback
}

// Render turns the elevation raster of one tile into a hillshaded
// grayscale image. The samples must carry a margin of at least one
// pixel; gradients are estimated with Horn's method over the 3×3
// neighborhood, scaled by the ground size of a pixel at the row's
// latitude, which varies under Web Mercator. No-data pixels render as
// FlatShade.
func Render(s *srtm.Samples) *image.Gray {
	if s.Margin < 1 {
		panic("shade: samples need at least one pixel of margin")
	}
	zoom := s.Tile.Zoom()
	_, minY, _, maxY := s.Tile.Bounds()

	img := image.NewGray(image.Rect(0, 0, s.Size, s.Size))
	for py := 0; py < s.Size; py++ {
		ny := minY + (float64(py)+0.5)/float64(s.Size)*(maxY-minY)
		_, lat := tile.Unproject(0.5, ny)
		cell := tile.GroundResolution(lat, zoom) * float64(tile.Size) / float64(s.Size)

		for px := 0; px < s.Size; px++ {
			center := s.At(px, py)
			if math.IsNaN(center) {
				img.Pix[py*img.Stride+px] = FlatShade
				continue
			}

			// Missing neighbors fall back to the center value, which
			// flattens the gradient toward the data edge instead of
			// inventing cliffs.
			a := neighbor(s, px-1, py-1, center)
			b := neighbor(s, px, py-1, center)
			c := neighbor(s, px+1, py-1, center)
			d := neighbor(s, px-1, py, center)
			f := neighbor(s, px+1, py, center)
			g := neighbor(s, px-1, py+1, center)
			h := neighbor(s, px, py+1, center)
			i := neighbor(s, px+1, py+1, center)

			dzdx := ((c + 2*f + i) - (a + 2*d + g)) / (8 * cell)
			dzdy := ((g + 2*h + i) - (a + 2*b + c)) / (8 * cell)
			img.Pix[py*img.Stride+px] = shadePixel(dzdx, dzdy)
		}
	}
	return img
}

// EmptyTile returns the canonical placeholder image shared by all empty
// tiles: a uniform raster of FlatShade.
func EmptyTile() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, tile.Size, tile.Size))
	for i := range img.Pix {
		img.Pix[i] = FlatShade
	}
	return img
}
