// SPDX-License-Identifier: MIT

package empties

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/lanrat/extsort"
	"golang.org/x/sync/errgroup"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// emptyTile wraps a TileKey for external sorting. The empties file is
// sorted by (zoom, x, y) so that runs over the same input are
// byte-identical and diffs stay readable.
type emptyTile struct {
	Key tile.TileKey
}

func (e emptyTile) ToBytes() []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(e.Key))
	return buf[:]
}

func emptyTileFromBytes(b []byte) extsort.SortType {
	return emptyTile{Key: tile.TileKey(binary.LittleEndian.Uint64(b))}
}

func emptyTileLess(a, b extsort.SortType) bool {
	az, ax, ay := a.(emptyTile).Key.ZoomXY()
	bz, bx, by := b.(emptyTile).Key.ZoomXY()
	if az != bz {
		return az < bz
	}
	if ax != bx {
		return ax < bx
	}
	return ay < by
}

// WriteFile drains tile keys from in, sorts them externally, and writes
// them gzip-compressed to path, one "z/x/y.png" line per tile. The
// written file is the persisted EmptyTileSet consumed by the rendering
// and download-planning passes.
func WriteFile(ctx context.Context, path string, in chan tile.TileKey) (int64, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	w := bufio.NewWriter(zw)

	ch := make(chan extsort.SortType, 10000)
	config := extsort.DefaultConfig()
	config.NumWorkers = runtime.NumCPU()
	sorter, outChan, errChan := extsort.New(ch, emptyTileFromBytes, emptyTileLess, config)

	g, subCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for key := range in {
			select {
			case ch <- emptyTile{Key: key}:
			case <-subCtx.Done():
				return subCtx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		sorter.Sort(ctx) // not subCtx, as per extsort docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var count int64
	for data := range outChan {
		zoom, x, y := data.(emptyTile).Key.ZoomXY()
		if _, err := fmt.Fprintf(w, "%d/%d/%d.png\n", zoom, x, y); err != nil {
			return 0, err
		}
		count++
	}
	if err := <-errChan; err != nil {
		return 0, err
	}

	if err := w.Flush(); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return count, os.Rename(tmpPath, path)
}

// Set is the immutable set of empty tiles, built once before rendering
// starts. Keys are kept as a sorted slice; at full depth the set holds
// tens of millions of entries, and a slice with binary search needs a
// fraction of the memory of a map.
type Set struct {
	keys []tile.TileKey
}

// NewSet builds a Set from the given keys.
func NewSet(keys []tile.TileKey) *Set {
	sorted := make([]tile.TileKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &Set{keys: sorted}
}

// LoadSet reads an empties file written by WriteFile.
func LoadSet(path string) (*Set, error) {
	r, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var keys []tile.TileKey
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &Set{keys: keys}, nil
}

func parseLine(line string) (tile.TileKey, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".png")
	parts := strings.Split(line, "/")
	if len(parts) != 3 {
		return tile.NoTile, fmt.Errorf("malformed empties line %q", line)
	}
	zoom, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || zoom > 29 {
		return tile.NoTile, fmt.Errorf("malformed empties line %q", line)
	}
	x, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return tile.NoTile, fmt.Errorf("malformed empties line %q", line)
	}
	y, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return tile.NoTile, fmt.Errorf("malformed empties line %q", line)
	}
	if x >= 1<<zoom || y >= 1<<zoom {
		return tile.NoTile, fmt.Errorf("empties line %q out of range", line)
	}
	return tile.MakeTileKey(uint8(zoom), uint32(x), uint32(y)), nil
}

// Contains reports whether t is in the set.
func (s *Set) Contains(t tile.TileKey) bool {
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= t })
	return i < len(s.keys) && s.keys[i] == t
}

// Len returns the number of empty tiles.
func (s *Set) Len() int {
	return len(s.keys)
}
