// SPDX-License-Identifier: MIT

// Package pipeline renders the hillshaded tile pyramid: a block pass
// that shades the deepest zoom level straight from the elevation grid,
// and a merge pass that derives every lower level from the stored
// height grids of the level below.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/shade"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/srtm"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// sampleMargin is the overscan, in pixels, rendered around each tile so
// the shading gradient stays seamless across tile borders.
const sampleMargin = 8

type Config struct {
	MinZoom uint8
	MaxZoom uint8
	DataDir string // SRTM granules
	TileDir string // output tree
	Workers int
	Empties *empties.Set
	Logger  *log.Logger
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	// Rendering a deep-zoom block holds a lot of granule data in
	// memory, so the default stays low.
	return 2
}

// Generate renders all non-empty tiles between MinZoom and MaxZoom into
// TileDir. Already rendered tiles are skipped, so an interrupted run
// can be resumed by running it again.
func Generate(ctx context.Context, config Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.TileDir, 0755); err != nil {
		return err
	}
	if err := writeEmptyPlaceholder(config.TileDir); err != nil {
		return err
	}

	blockZoom := max(config.MinZoom, 7)
	if config.MaxZoom > 5 && config.MaxZoom-5 > blockZoom {
		blockZoom = config.MaxZoom - 5
	}
	blocks := collectNonEmpty(tile.WorldTile, blockZoom, config.Empties, nil)
	config.Logger.Printf("rendering zoom %d in %d blocks of zoom %d",
		config.MaxZoom, len(blocks), blockZoom)

	err := eachTile(ctx, blocks, config.workers(), func(grid *srtm.Grid, block tile.TileKey) error {
		return renderBlock(grid, block, &config)
	}, func() *srtm.Grid {
		// One grid per worker, so each block pass keeps its own
		// granule locality.
		return srtm.NewGrid(config.DataDir, config.Logger)
	})
	if err != nil {
		return err
	}

	for zoom := int(config.MaxZoom) - 1; zoom >= int(config.MinZoom); zoom-- {
		tiles := collectNonEmpty(tile.WorldTile, uint8(zoom), config.Empties, nil)
		config.Logger.Printf("merging %d tiles of zoom %d from the height grids of zoom %d",
			len(tiles), zoom, zoom+1)
		err := eachTile(ctx, tiles, 3*config.workers(), func(_ *srtm.Grid, t tile.TileKey) error {
			return mergeTile(t, &config)
		}, func() *srtm.Grid { return nil })
		if err != nil {
			return err
		}
	}
	return nil
}

// eachTile runs fn over tiles on a fixed pool of workers, each holding
// the state produced by newState.
func eachTile(ctx context.Context, tiles []tile.TileKey, workers int,
	fn func(*srtm.Grid, tile.TileKey) error, newState func() *srtm.Grid) error {
	g, subCtx := errgroup.WithContext(ctx)
	ch := make(chan tile.TileKey)
	g.Go(func() error {
		defer close(ch)
		for _, t := range tiles {
			select {
			case ch <- t:
			case <-subCtx.Done():
				return subCtx.Err()
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		state := newState()
		g.Go(func() error {
			for t := range ch {
				if err := fn(state, t); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// collectNonEmpty appends all non-empty descendants of t at the given
// zoom, pruning empty subtrees.
func collectNonEmpty(t tile.TileKey, zoom uint8, empty *empties.Set, out []tile.TileKey) []tile.TileKey {
	if empty != nil && empty.Contains(t) {
		return out
	}
	if t.Zoom() == zoom {
		return append(out, t)
	}
	for _, child := range t.Children() {
		out = collectNonEmpty(child, zoom, empty, out)
	}
	return out
}

// renderBlock shades every non-empty MaxZoom tile below the block,
// sampling the elevation grid directly.
func renderBlock(grid *srtm.Grid, block tile.TileKey, config *Config) error {
	tiles := collectNonEmpty(block, config.MaxZoom, config.Empties, nil)
	for _, t := range tiles {
		pngPath, heightPath := outputPaths(config.TileDir, t)
		if exists(pngPath) && exists(heightPath) {
			continue
		}
		samples := grid.TileSamples(t, tile.Size, sampleMargin)
		if err := writeTile(pngPath, heightPath, samples); err != nil {
			return err
		}
	}
	return nil
}

// mergeTile renders one tile of zoom z from the stored height grids of
// zoom z+1: the four child grids form the core, the neighboring grids
// contribute the overscan margin.
func mergeTile(t tile.TileKey, config *Config) error {
	pngPath, heightPath := outputPaths(config.TileDir, t)
	if exists(pngPath) && exists(heightPath) {
		return nil
	}

	zoom, x, y := t.ZoomXY()
	childZoom := zoom + 1
	i0, j0 := int64(x)*2, int64(y)*2
	n := int64(1) << childZoom

	samples := srtm.NewSamples(t, tile.Size, sampleMargin)
	// Areas without a stored grid merge as sea level, not as no-data.
	for i := range samples.Elev {
		samples.Elev[i] = 0
	}

	for cj := j0 - 1; cj <= j0+2; cj++ {
		if cj < 0 || cj >= n {
			continue
		}
		for ci := i0 - 1; ci <= i0+2; ci++ {
			// The x axis wraps around the antimeridian.
			wrapped := ((ci % n) + n) % n
			child := tile.MakeTileKey(childZoom, uint32(wrapped), uint32(cj))
			grid, err := readHeightGrid(heightGridPath(config.TileDir, child))
			if err != nil {
				return err
			}
			x0 := int(ci-i0) * HeightGridSize
			y0 := int(cj-j0) * HeightGridSize
			copyGrid(samples, grid, x0, y0)
		}
	}
	return writeTile(pngPath, heightPath, samples)
}

// copyGrid pastes a child height grid whose top-left payload corner is
// at (x0, y0), clipped to the samples' overscan window.
func copyGrid(s *srtm.Samples, grid []float64, x0, y0 int) {
	for gy := 0; gy < HeightGridSize; gy++ {
		py := y0 + gy
		if py < -s.Margin || py >= s.Size+s.Margin {
			continue
		}
		for gx := 0; gx < HeightGridSize; gx++ {
			px := x0 + gx
			if px < -s.Margin || px >= s.Size+s.Margin {
				continue
			}
			s.Set(px, py, grid[gy*HeightGridSize+gx])
		}
	}
}

// writeTile shades the samples into a PNG and stores the halved height
// grid next to it.
func writeTile(pngPath, heightPath string, samples *srtm.Samples) error {
	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return err
	}
	if err := writePNG(pngPath, shade.Render(samples)); err != nil {
		return err
	}
	return writeHeightGrid(heightPath, samples.Downsample().Elev)
}

func outputPaths(dir string, t tile.TileKey) (pngPath, heightPath string) {
	zoom, x, y := t.ZoomXY()
	base := filepath.Join(dir,
		strconv.Itoa(int(zoom)),
		strconv.FormatUint(uint64(x), 10),
		strconv.FormatUint(uint64(y), 10))
	return base + ".png", base + ".hgt.br"
}

func heightGridPath(dir string, t tile.TileKey) string {
	_, path := outputPaths(dir, t)
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writePNG(path string, img image.Image) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// writeEmptyPlaceholder stores the single shared image that represents
// every empty tile.
func writeEmptyPlaceholder(dir string) error {
	path := filepath.Join(dir, "empty.png")
	if exists(path) {
		return nil
	}
	return writePNG(path, shade.EmptyTile())
}

// CheckResumable reports a friendly error when the tile directory
// exists but does not look like a previous run's output.
func CheckResumable(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if name == "empty.png" || strings.HasSuffix(name, ".tmp") ||
			e.IsDir() && isZoomDir(name) {
			continue
		}
		return fmt.Errorf("tile directory %s contains unrelated file %s", dir, name)
	}
	return nil
}

func isZoomDir(name string) bool {
	z, err := strconv.Atoi(name)
	return err == nil && z >= 0 && z <= 29
}
