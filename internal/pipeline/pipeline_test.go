// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/shade"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/srtm"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// writeTestGranule writes a raw .hgt granule whose value at lattice
// column c and row r is fn(c, r).
func writeTestGranule(t *testing.T, dir, key string, fn func(col, row int) int16) {
	t.Helper()
	raw := make([]byte, srtm.Dim*srtm.Dim*2)
	for row := 0; row < srtm.Dim; row++ {
		for col := 0; col < srtm.Dim; col++ {
			binary.BigEndian.PutUint16(raw[2*(row*srtm.Dim+col):], uint16(fn(col, row)))
		}
	}
	if err := os.WriteFile(filepath.Join(dir, key+".hgt"), raw, 0644); err != nil {
		t.Fatal(err)
	}
}

// emptiesExcept marks everything empty except the ancestors of keep.
func emptiesExcept(keep tile.TileKey) *empties.Set {
	var keys []tile.TileKey
	var walk func(t tile.TileKey)
	walk = func(t tile.TileKey) {
		if t == keep {
			return
		}
		if t.Contains(keep) {
			for _, child := range t.Children() {
				walk(child)
			}
			return
		}
		keys = append(keys, t)
	}
	walk(tile.WorldTile)
	return empties.NewSet(keys)
}

func TestGenerate(t *testing.T) {
	dataDir := t.TempDir()
	// An eastward ramp fully inside the granule at 47°N 8°E.
	writeTestGranule(t, dataDir, "N47E008", func(col, row int) int16 {
		return int16(col / 2)
	})

	// This tile and its overscan margin lie strictly within the granule.
	target := tile.MakeTileKey(10, 536, 358)
	tileDir := filepath.Join(t.TempDir(), "tiles")
	config := Config{
		MinZoom: 9,
		MaxZoom: 10,
		DataDir: dataDir,
		TileDir: tileDir,
		Workers: 1,
		Empties: emptiesExcept(target),
		Logger:  log.New(io.Discard, "", 0),
	}
	if err := Generate(context.Background(), config); err != nil {
		t.Fatal(err)
	}

	// The shared placeholder is uniform.
	empty := decodePNG(t, filepath.Join(tileDir, "empty.png"))
	if empty.Bounds().Dx() != tile.Size || empty.Bounds().Dy() != tile.Size {
		t.Fatalf("empty.png is %v", empty.Bounds())
	}
	if gray := color.GrayModel.Convert(empty.At(13, 200)).(color.Gray); gray.Y != shade.FlatShade {
		t.Errorf("empty.png pixel is %d, want %d", gray.Y, shade.FlatShade)
	}

	// The deep-zoom tile was rendered from the elevation grid.
	img := decodePNG(t, filepath.Join(tileDir, "10/536/358.png"))
	if img.Bounds().Dx() != tile.Size || img.Bounds().Dy() != tile.Size {
		t.Fatalf("rendered tile is %v", img.Bounds())
	}

	// Its height grid rises from west to east.
	grid, err := readHeightGrid(filepath.Join(tileDir, "10/536/358.hgt.br"))
	if err != nil {
		t.Fatal(err)
	}
	if grid[64*HeightGridSize+20] >= grid[64*HeightGridSize+100] {
		t.Errorf("height grid should rise eastward, got %g >= %g",
			grid[64*HeightGridSize+20], grid[64*HeightGridSize+100])
	}

	// The parent tile was merged from the child height grids: the
	// north-western quadrant holds the child's data, the south-eastern
	// quadrant sea level.
	if _, err := os.Stat(filepath.Join(tileDir, "9/268/179.png")); err != nil {
		t.Fatal(err)
	}
	parentGrid, err := readHeightGrid(filepath.Join(tileDir, "9/268/179.hgt.br"))
	if err != nil {
		t.Fatal(err)
	}
	if parentGrid[32*HeightGridSize+32] <= 0 {
		t.Errorf("got %g at the merged quadrant, want elevation above sea level",
			parentGrid[32*HeightGridSize+32])
	}
	if parentGrid[96*HeightGridSize+96] != 0 {
		t.Errorf("got %g at the unrendered quadrant, want 0",
			parentGrid[96*HeightGridSize+96])
	}
}

func TestGenerate_Resumes(t *testing.T) {
	dataDir := t.TempDir()
	writeTestGranule(t, dataDir, "N47E008", func(col, row int) int16 {
		return int16(col / 2)
	})
	target := tile.MakeTileKey(10, 536, 358)
	config := Config{
		MinZoom: 10,
		MaxZoom: 10,
		DataDir: dataDir,
		TileDir: filepath.Join(t.TempDir(), "tiles"),
		Workers: 1,
		Empties: emptiesExcept(target),
		Logger:  log.New(io.Discard, "", 0),
	}
	if err := Generate(context.Background(), config); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(config.TileDir, "10/536/358.png")
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Generate(context.Background(), config); err != nil {
		t.Fatal(err)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("rendered tile was rewritten on resume")
	}
}

func TestGenerate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	config := Config{
		MinZoom: 10,
		MaxZoom: 10,
		DataDir: t.TempDir(),
		TileDir: filepath.Join(t.TempDir(), "tiles"),
		Workers: 1,
		Empties: emptiesExcept(tile.MakeTileKey(10, 536, 358)),
		Logger:  log.New(io.Discard, "", 0),
	}
	if err := Generate(ctx, config); err == nil {
		t.Error("expected an error for a canceled context")
	}
}

func TestCheckResumable(t *testing.T) {
	dir := t.TempDir()
	if err := CheckResumable(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "12"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "empty.png"), []byte{1}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckResumable(dir); err != nil {
		t.Errorf("tile directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte{1}, 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckResumable(dir); err == nil {
		t.Error("expected an error for an unrelated file")
	}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	return img
}
