// SPDX-License-Identifier: MIT

package archive

import (
	"strings"
	"testing"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// emptySubtree returns t and all its descendants up to maxZoom.
func emptySubtree(t tile.TileKey, maxZoom uint8) []tile.TileKey {
	keys := []tile.TileKey{t}
	if t.Zoom() < maxZoom {
		for _, child := range t.Children() {
			keys = append(keys, emptySubtree(child, maxZoom)...)
		}
	}
	return keys
}

func TestGroups(t *testing.T) {
	groups := Groups(7, nil)

	// One base group, one zoom-6 group, and four zoom-7 groups, one
	// per zoom-1 block.
	if len(groups) != 6 {
		t.Fatalf("got %d groups, want 6", len(groups))
	}
	if groups[0].Filename != "tiles__0_to_5" {
		t.Errorf("got first group %q, want tiles__0_to_5", groups[0].Filename)
	}
	if len(groups[0].Tiles) != 1365 { // 1 + 4 + 16 + 64 + 256 + 1024
		t.Errorf("got %d base tiles, want 1365", len(groups[0].Tiles))
	}
	if groups[1].Filename != "tiles__6__0_0_0" {
		t.Errorf("got second group %q, want tiles__6__0_0_0", groups[1].Filename)
	}
	zoom7 := groups[2:]
	wantNames := []string{"tiles__7__1_0_0", "tiles__7__1_0_1", "tiles__7__1_1_0", "tiles__7__1_1_1"}
	for i, g := range zoom7 {
		if g.Filename != wantNames[i] {
			t.Errorf("group %d: got %q, want %q", i+2, g.Filename, wantNames[i])
		}
		if len(g.Tiles) != 4096 {
			t.Errorf("group %q: got %d tiles, want 4096", g.Filename, len(g.Tiles))
		}
	}
}

func TestGroups_AncestorProperty(t *testing.T) {
	for _, g := range Groups(7, nil) {
		if g.Block == tile.WorldTile && g.Zoom == 0 {
			continue
		}
		for _, member := range g.Tiles {
			if member.Ancestor(6) != g.Block {
				t.Fatalf("tile %s in group %s: ancestor %s, want %s",
					member, g.Filename, member.Ancestor(6), g.Block)
			}
		}
	}
}

func TestGroups_Description(t *testing.T) {
	groups := Groups(7, nil)
	want := "All non-empty tiles of level 7 that lie within the block 0/0 of level 1. " +
		"This block covers the area between latitudes 85.051129 and 0.000000 " +
		"and longitudes -180.000000 and 0.000000."
	if got := groups[2].Description; got != want {
		t.Errorf("got description %q, want %q", got, want)
	}
}

func TestGroups_PrunesEmpties(t *testing.T) {
	// Declare the north-western world quadrant empty.
	empty := empties.NewSet(emptySubtree(tile.MakeTileKey(1, 0, 0), 7))
	groups := Groups(7, empty)

	total := 0
	for _, g := range groups {
		for _, member := range g.Tiles {
			if empty.Contains(member) {
				t.Fatalf("group %s contains empty tile %s", g.Filename, member)
			}
			total++
		}
		if strings.HasPrefix(g.Filename, "tiles__7__1_0_0") {
			t.Errorf("empty block should not yield group %s", g.Filename)
		}
	}

	// Union of all groups covers exactly the non-empty tiles: three of
	// four quadrants remain at every zoom.
	want := 1 // world tile
	for z := 1; z <= 7; z++ {
		want += 3 * (1 << uint(2*z)) / 4
	}
	if total != want {
		t.Errorf("got %d tiles across all groups, want %d", total, want)
	}
}
