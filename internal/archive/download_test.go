// SPDX-License-Identifier: MIT

package archive

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

func loadTestRegion(t *testing.T) *empties.Landmass {
	t.Helper()
	input := `{"type": "Feature", "properties": {}, "geometry": {
	  "type": "Polygon",
	  "coordinates": [[[8, 46], [10, 46], [10, 48], [8, 48], [8, 46]]]
	}}`
	region, err := empties.LoadLandmass(strings.NewReader(input), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	return region
}

func TestPlanDownload_NoRegion(t *testing.T) {
	plan := PlanDownload(6, 6, nil, nil)
	if len(plan.Packages) != 2 {
		t.Fatalf("got %d packages, want 2", len(plan.Packages))
	}
	if plan.TileCount() != 1365+4096 {
		t.Errorf("got %d tiles, want %d", plan.TileCount(), 1365+4096)
	}
	if len(plan.EmptyTiles) != 0 {
		t.Errorf("got %d empty tiles, want 0", len(plan.EmptyTiles))
	}
}

func TestPlanDownload_Region(t *testing.T) {
	region := loadTestRegion(t)
	plan := PlanDownload(7, 5, region, nil)

	// Everything up to zoom 5 plus the zoom 6 and 7 tiles around the
	// region of interest.
	seen := make(map[tile.TileKey]bool)
	for _, pkg := range plan.Packages {
		for _, member := range pkg.Tiles {
			seen[member] = true
		}
	}
	for member := range seen {
		if member.Zoom() <= 5 {
			continue
		}
		if !region.Intersects(empties.TileBound(member)) {
			t.Errorf("tile %s does not intersect the region", member)
		}
	}
	// The tile over Zurich is required at full depth, a mid-Pacific
	// tile only up to the outside level.
	if !seen[tile.At(8.5, 47.4, 7)] {
		t.Error("missing the zoom-7 tile inside the region")
	}
	if seen[tile.At(-150, -30, 7)] {
		t.Error("unexpected zoom-7 tile outside the region")
	}
	if !seen[tile.At(-150, -30, 5)] {
		t.Error("missing the zoom-5 tile outside the region")
	}
}

func TestPlanDownload_EmptyTiles(t *testing.T) {
	empty := empties.NewSet(emptySubtree(tile.MakeTileKey(1, 1, 1), 6))
	plan := PlanDownload(6, 6, nil, empty)
	if len(plan.EmptyTiles) != len(emptySubtree(tile.MakeTileKey(1, 1, 1), 6)) {
		t.Errorf("got %d empty tiles, want %d",
			len(plan.EmptyTiles), len(emptySubtree(tile.MakeTileKey(1, 1, 1), 6)))
	}
	for _, member := range plan.EmptyTiles {
		if !empty.Contains(member) {
			t.Errorf("tile %s should be empty", member)
		}
	}
}

func TestWriteDownloadScripts(t *testing.T) {
	empty := empties.NewSet(emptySubtree(tile.MakeTileKey(1, 1, 1), 6))
	plan := PlanDownload(6, 6, nil, empty)
	dir := t.TempDir()
	config := DownloadConfig{
		BaseURL:     "https://example.org/tiles",
		DatasetURL:  "https://example.org/dataset",
		Attribution: "Relief Tiles",
		InsideMax:   6,
		OutsideMax:  6,
	}
	if err := WriteDownloadScripts(dir, plan, config); err != nil {
		t.Fatal(err)
	}

	download, err := os.ReadFile(filepath.Join(dir, "download_commands"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(download), `--location "https://example.org/tiles/tiles__0_to_5.zip"`) {
		t.Error("download_commands is missing the base group archive")
	}
	if !strings.Contains(string(download), "empty.png") {
		t.Error("download_commands is missing the empty placeholder")
	}

	extraction, err := os.ReadFile(filepath.Join(dir, "extraction_commands"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(extraction), "xargs -a $download_dir/tiles__0_to_5.files unzip -d $extraction_dir $download_dir/tiles__0_to_5.zip") {
		t.Error("extraction_commands is missing the unzip invocation")
	}

	softlink, err := os.ReadFile(filepath.Join(dir, "softlink_commands"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(softlink), "ln -s $download_dir/empty.png $extraction_dir/1/1/1.png") {
		t.Error("softlink_commands is missing the empty tile link")
	}

	leaflet, err := os.ReadFile(filepath.Join(dir, "leaflet_code.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(leaflet), "maxNativeZoom: 6") {
		t.Error("leaflet_code.js is missing the max zoom")
	}
	if strings.Contains(string(leaflet), "layerGroup") {
		t.Error("leaflet_code.js should use a single layer without a region")
	}
}
