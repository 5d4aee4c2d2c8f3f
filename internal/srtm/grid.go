// SPDX-License-Identifier: MIT

// Package srtm reads one-arcsecond SRTM elevation granules and resamples
// them onto Web Mercator tile rasters. The source lattice covers
// latitudes within ±60°; everything outside that band, and every
// granule file that is absent, reads as "no data", never as zero.
package srtm

import (
	"log"
	"math"
	"sync"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// MaxCoverageLat bounds the latitude band covered by SRTM.
const MaxCoverageLat = 60

const arcsecPerDegree = 3600

// DefaultCacheSize is the number of decoded granules a Grid keeps in
// memory. A granule is about 26 MB; neighboring output tiles need
// overlapping granule sets, so a handful of cached cells eliminates
// nearly all repeated reads.
const DefaultCacheSize = 16

// Grid provides elevation samples from a directory of SRTM granules.
// It is safe for concurrent use.
type Grid struct {
	dir    string
	logger *log.Logger

	mu    sync.Mutex
	cache *granuleCache
}

// NewGrid returns a Grid reading granules from dir. A nil logger
// disables diagnostics.
func NewGrid(dir string, logger *log.Logger) *Grid {
	return &Grid{
		dir:    dir,
		logger: logger,
		cache:  newGranuleCache(DefaultCacheSize),
	}
}

// granule returns the decoded granule containing the given key,
// reading and caching it on first use.
func (g *Grid) granule(key granuleKey) *granule {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.cache.get(key); ok {
		return cached
	}
	gr, err := readGranule(g.dir, key)
	if err != nil {
		// Undecodable files are treated like missing ones; the pipeline
		// renders the affected area flat instead of aborting a run that
		// may be hours in.
		if g.logger != nil {
			g.logger.Printf("ignoring granule %s: %v", key, err)
		}
		gr = &granule{}
	} else if gr.data == nil && g.logger != nil {
		g.logger.Printf("granule %s does not exist, treating as no data", key)
	}
	g.cache.put(key, gr)
	return gr
}

// latticeAt returns the elevation at the lattice point with the given
// global arcsecond indices. i counts longitude arcseconds eastward from
// the prime meridian, j latitude arcseconds northward from the equator.
func (g *Grid) latticeAt(i, j int) (float64, bool) {
	if j < -MaxCoverageLat*arcsecPerDegree || j >= MaxCoverageLat*arcsecPerDegree {
		return 0, false
	}
	// Wrap longitude across the antimeridian.
	const span = 360 * arcsecPerDegree
	i = ((i+180*arcsecPerDegree)%span+span)%span - 180*arcsecPerDegree

	lonDeg := floorDiv(i, arcsecPerDegree)
	latDeg := floorDiv(j, arcsecPerDegree)
	col := i - lonDeg*arcsecPerDegree
	row := arcsecPerDegree - (j - latDeg*arcsecPerDegree) // row 0 is north

	gr := g.granule(granuleKey{Lon: lonDeg, Lat: latDeg})
	v, ok := gr.at(col, row)
	return float64(v), ok
}

// Sample bilinearly interpolates the elevation at a geographic point
// from the four surrounding lattice points. It reports ok=false if any
// of the four lies outside coverage or holds no data.
func (g *Grid) Sample(lon, lat float64) (float64, bool) {
	u := lon * arcsecPerDegree
	v := lat * arcsecPerDegree
	i0 := int(math.Floor(u))
	j0 := int(math.Floor(v))
	fu := u - float64(i0)
	fv := v - float64(j0)

	e00, ok00 := g.latticeAt(i0, j0)
	e10, ok10 := g.latticeAt(i0+1, j0)
	e01, ok01 := g.latticeAt(i0, j0+1)
	e11, ok11 := g.latticeAt(i0+1, j0+1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return 0, false
	}
	e := e00*(1-fu)*(1-fv) + e10*fu*(1-fv) + e01*(1-fu)*fv + e11*fu*fv
	return e, true
}

// TileSamples resamples the grid onto the raster of tile t at the given
// payload size, plus margin overscan rows and columns on every side so
// that a gradient operator applied to the payload never needs values
// from outside the returned array.
func (g *Grid) TileSamples(t tile.TileKey, size, margin int) *Samples {
	s := NewSamples(t, size, margin)
	minX, minY, maxX, maxY := t.Bounds()
	dim := s.Dim()
	for py := 0; py < dim; py++ {
		ny := minY + (float64(py-margin)+0.5)/float64(size)*(maxY-minY)
		for px := 0; px < dim; px++ {
			nx := minX + (float64(px-margin)+0.5)/float64(size)*(maxX-minX)
			lon, lat := tile.Unproject(nx, ny)
			if e, ok := g.Sample(lon, lat); ok {
				s.Elev[py*dim+px] = e
			}
		}
	}
	return s
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// granuleCache is a small LRU over decoded granules. Entries for absent
// files are cached too, so repeated ocean tiles don't hit the filesystem.
type granuleCache struct {
	cap   int
	order []granuleKey // most recently used first
	m     map[granuleKey]*granule
}

func newGranuleCache(cap int) *granuleCache {
	return &granuleCache{
		cap: cap,
		m:   make(map[granuleKey]*granule, cap),
	}
}

func (c *granuleCache) get(k granuleKey) (*granule, bool) {
	g, ok := c.m[k]
	if ok {
		c.touch(k)
	}
	return g, ok
}

func (c *granuleCache) put(k granuleKey, g *granule) {
	if _, ok := c.m[k]; ok {
		c.m[k] = g
		c.touch(k)
		return
	}
	if len(c.order) == c.cap {
		evict := c.order[len(c.order)-1]
		delete(c.m, evict)
		c.order = c.order[:len(c.order)-1]
	}
	c.order = append([]granuleKey{k}, c.order...)
	c.m[k] = g
}

func (c *granuleCache) touch(k granuleKey) {
	for i, o := range c.order {
		if o == k {
			copy(c.order[1:i+1], c.order[0:i])
			c.order[0] = k
			return
		}
	}
}
