// SPDX-License-Identifier: MIT

package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

var testWriteConfig = WriteConfig{
	ServerURL:    "https://darus.uni-stuttgart.de/",
	PersistentID: "doi:10.18419/darus-3837",
}

func TestWrite(t *testing.T) {
	// Keep the fixture small: everything below zoom 2 except one
	// quadrant is empty.
	var keys []tile.TileKey
	for _, child := range tile.MakeTileKey(1, 0, 0).Children() {
		if child != tile.MakeTileKey(2, 0, 0) {
			keys = append(keys, emptySubtree(child, 6)...)
		}
	}
	for _, quadrant := range []tile.TileKey{
		tile.MakeTileKey(1, 0, 1), tile.MakeTileKey(1, 1, 0), tile.MakeTileKey(1, 1, 1),
	} {
		keys = append(keys, emptySubtree(quadrant, 6)...)
	}
	empty := empties.NewSet(keys)

	groups := Groups(6, empty)
	base := filepath.Join(t.TempDir(), "work")
	if err := os.MkdirAll(base, 0755); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(base, "archive")
	if err := Write(dir, groups, testWriteConfig); err != nil {
		t.Fatal(err)
	}

	manifest, err := os.ReadFile(filepath.Join(base, "manifest.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(manifest), "\n"), "\n")
	if lines[0] != "tiles__0_to_5.zip:" {
		t.Errorf("got first manifest line %q, want tiles__0_to_5.zip:", lines[0])
	}
	if lines[1] != "  0/0/0.png" {
		t.Errorf("got second manifest line %q, want   0/0/0.png", lines[1])
	}

	contents, err := os.ReadFile(filepath.Join(dir, "tiles__6__0_0_0.contents"))
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimRight(string(contents), "\n"), "\n") {
		if !strings.HasPrefix(line, "6/") || !strings.HasSuffix(line, ".png") {
			t.Errorf("unexpected contents line %q", line)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "tiles__0_to_5.metadata"))
	if err != nil {
		t.Fatal(err)
	}
	var meta struct {
		Description    string   `json:"description"`
		DirectoryLabel string   `json:"directoryLabel"`
		Categories     []string `json:"categories"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Description != "All non-empty tiles of levels 0 to 5." {
		t.Errorf("got description %q", meta.Description)
	}
	if meta.DirectoryLabel != "tiles" || len(meta.Categories) != 1 || meta.Categories[0] != "Data" {
		t.Errorf("got metadata %+v", meta)
	}

	cmds, err := os.ReadFile(filepath.Join(base, "archive_commands"))
	if err != nil {
		t.Fatal(err)
	}
	cmdLines := strings.Split(string(cmds), "\n")
	if cmdLines[0] != "archive_dir=$(pwd)/archive" || cmdLines[2] != "cd $tile_dir" {
		t.Errorf("unexpected archive_commands preamble %q", cmdLines[:3])
	}
	if want := "zip -q /tmp/tiles__0_to_5.zip -@ < $archive_dir/tiles__0_to_5.contents"; cmdLines[3] != want {
		t.Errorf("got %q, want %q", cmdLines[3], want)
	}

	upload, err := os.ReadFile(filepath.Join(base, "upload_commands"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(upload), `export SERVER_URL="https://darus.uni-stuttgart.de/"`) {
		t.Error("upload_commands is missing the server URL")
	}
	if !strings.Contains(string(upload), "jsonData=@archive/tiles__0_to_5.metadata") {
		t.Error("upload_commands is missing the metadata reference")
	}
}

func TestWrite_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, nil, testWriteConfig); err == nil {
		t.Error("expected an error for an existing archive directory")
	}
}
