// SPDX-License-Identifier: MIT

package srtm

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dim is the number of samples along one edge of an SRTM granule.
// One-arcsecond granules cover a 1°×1° area with 3601×3601 samples;
// the first and last rows and columns overlap the neighboring granules.
const Dim = 3601

// Void is the value SRTM uses for samples without valid data.
const Void = -32768

// A granuleKey names a granule by the integer degrees of its
// south-western corner.
type granuleKey struct {
	Lon, Lat int
}

// String formats the key the way SRTM files are named: the cell with
// its south-western corner at 48°N 9°E is "N48E009".
func (k granuleKey) String() string {
	ns, lat := byte('N'), k.Lat
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	ew, lon := byte('E'), k.Lon
	if lon < 0 {
		ew, lon = 'W', -lon
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, lat, ew, lon)
}

// A granule holds the decoded sample lattice of one SRTM file.
// data is nil for granules whose file does not exist; such granules
// read as all no-data.
type granule struct {
	data []int16 // Dim×Dim, row 0 is the northern edge
}

// at returns the lattice value at the given column and row, with row 0
// at the granule's northern edge.
func (g *granule) at(col, row int) (int16, bool) {
	if g.data == nil {
		return 0, false
	}
	v := g.data[row*Dim+col]
	if v == Void {
		return 0, false
	}
	return v, true
}

// readGranule loads and decodes one SRTM granule from dir. The file may
// be a raw .hgt or a zip archive containing one; all names seen in the
// wild are tried. A missing file is not an error: the caller gets a
// granule that reads as all no-data.
func readGranule(dir string, key granuleKey) (*granule, error) {
	stem := key.String()
	for _, name := range []string{
		stem + ".hgt",
		stem + ".SRTMGL1.hgt.zip",
		stem + ".hgt.zip",
	} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var raw []byte
		var err error
		if filepath.Ext(path) == ".zip" {
			raw, err = readZippedGranule(path)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, err
		}
		return decodeGranule(raw, path)
	}
	return &granule{}, nil
}

// Sometimes the file inside the archive is called "{stem}.SRTMGL1.hgt",
// but mostly the ".SRTMGL1" part is missing, so we take whatever single
// file the archive contains.
func readZippedGranule(path string) ([]byte, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer z.Close()
	if len(z.File) == 0 {
		return nil, fmt.Errorf("%s: empty archive", path)
	}
	f, err := z.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func decodeGranule(raw []byte, path string) (*granule, error) {
	if len(raw) != Dim*Dim*2 {
		return nil, fmt.Errorf("%s: expected %d bytes, got %d", path, Dim*Dim*2, len(raw))
	}
	data := make([]int16, Dim*Dim)
	for i := range data {
		data[i] = int16(binary.BigEndian.Uint16(raw[2*i:]))
	}
	return &granule{data: data}, nil
}
