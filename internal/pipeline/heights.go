// SPDX-License-Identifier: MIT

package pipeline

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/andybalholm/brotli"
)

// HeightGridSize is the side length of the downsampled elevation grid
// stored next to each rendered tile. The grids feed the hierarchical
// merge that renders the lower zoom levels.
const HeightGridSize = 128

// writeHeightGrid stores a HeightGridSize² elevation grid as
// brotli-compressed little-endian float32, via a temp file so readers
// never see a partial grid.
func writeHeightGrid(path string, elev []float64) error {
	if len(elev) != HeightGridSize*HeightGridSize {
		return fmt.Errorf("height grid has %d samples, want %d", len(elev), HeightGridSize*HeightGridSize)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := brotli.NewWriterLevel(f, 6)
	w := bufio.NewWriter(bw)
	var buf [4]byte
	for _, v := range elev {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := bw.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// readHeightGrid reads a stored height grid. A missing file yields an
// all-zero grid, so oceans beyond the rendered area merge as sea level.
func readHeightGrid(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make([]float64, HeightGridSize*HeightGridSize), nil
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		return nil, err
	}
	if len(data) != 4*HeightGridSize*HeightGridSize {
		return nil, fmt.Errorf("%s: height grid has %d bytes, want %d",
			path, len(data), 4*HeightGridSize*HeightGridSize)
	}
	elev := make([]float64, HeightGridSize*HeightGridSize)
	for i := range elev {
		elev[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
	}
	return elev, nil
}
