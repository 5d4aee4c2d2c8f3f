// Tool for visualizing which map tiles are empty at a given zoom
// level. Reads the list written by generate-empties and paints the
// non-empty tiles dark on the WebMercator square.
//
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/fogleman/gg"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

func main() {
	emptiesPath := flag.String("empties", "empties.txt.gz", "list of empty tiles written by generate-empties")
	zoom := flag.Int("zoom", 6, "zoom level to plot")
	out := flag.String("out", "coverage.png", "path to output file being written")
	flag.Parse()
	if err := PlotCoverage(*emptiesPath, *zoom, *out); err != nil {
		log.Fatal(err)
	}
}

func PlotCoverage(emptiesPath string, zoom int, outPath string) error {
	if zoom < 0 || zoom > 12 {
		return fmt.Errorf("zoom %d out of plottable range 0..12", zoom)
	}
	empty, err := empties.LoadSet(emptiesPath)
	if err != nil {
		return err
	}

	const plotWidth = 1024.0
	n := 1 << zoom
	cell := plotWidth / float64(n)

	dc := gg.NewContext(int(plotWidth), int(plotWidth))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.22, 0.25, 0.32)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if empty.Contains(tile.MakeTileKey(uint8(zoom), uint32(x), uint32(y))) {
				continue
			}
			dc.DrawRectangle(float64(x)*cell, float64(y)*cell, cell, cell)
			dc.Fill()
		}
	}

	// Outline the ±60° band the elevation data covers.
	dc.SetRGB(0.8, 0.3, 0.2)
	dc.SetLineWidth(1)
	for _, lat := range []float64{60, -60} {
		_, yNorm := tile.Project(0, lat)
		dc.MoveTo(0, yNorm*plotWidth)
		dc.LineTo(plotWidth, yNorm*plotWidth)
		dc.Stroke()
	}

	return dc.SavePNG(outPath)
}
