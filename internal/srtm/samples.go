// SPDX-License-Identifier: MIT

package srtm

import (
	"math"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// Samples is a square elevation raster for one tile, in meters, with an
// overscan margin on all sides. Pixels without valid data are NaN.
type Samples struct {
	Tile   tile.TileKey
	Size   int       // payload side length, in pixels
	Margin int       // overscan border width, in pixels
	Elev   []float64 // (Size+2*Margin)² values, row-major, NaN = no data
}

// NewSamples returns an all-NaN raster for tile t.
func NewSamples(t tile.TileKey, size, margin int) *Samples {
	dim := size + 2*margin
	elev := make([]float64, dim*dim)
	for i := range elev {
		elev[i] = math.NaN()
	}
	return &Samples{Tile: t, Size: size, Margin: margin, Elev: elev}
}

// Dim returns the full side length including margins.
func (s *Samples) Dim() int {
	return s.Size + 2*s.Margin
}

// At returns the elevation at payload pixel (px, py). Coordinates from
// -Margin to Size+Margin-1 are valid and address the overscan area.
func (s *Samples) At(px, py int) float64 {
	dim := s.Dim()
	return s.Elev[(py+s.Margin)*dim+(px+s.Margin)]
}

// Set stores an elevation at payload pixel (px, py).
func (s *Samples) Set(px, py int, v float64) {
	dim := s.Dim()
	s.Elev[(py+s.Margin)*dim+(px+s.Margin)] = v
}

// Downsample reduces the payload area to half resolution by averaging
// 2×2 pixel blocks. Blocks without any valid pixel stay NaN. The result
// has no margin.
func (s *Samples) Downsample() *Samples {
	half := s.Size / 2
	out := NewSamples(s.Tile, half, 0)
	for py := 0; py < half; py++ {
		for px := 0; px < half; px++ {
			sum, n := 0.0, 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					if v := s.At(2*px+dx, 2*py+dy); !math.IsNaN(v) {
						sum += v
						n++
					}
				}
			}
			if n > 0 {
				out.Set(px, py, sum/float64(n))
			}
		}
	}
	return out
}
