// SPDX-License-Identifier: MIT

package archive

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// Plan lists which archives need downloading for a region of interest,
// which member tiles to extract from each, and which tiles can be
// symlinked to the shared empty placeholder instead.
type Plan struct {
	Packages   []PackageDownload
	EmptyTiles []tile.TileKey
}

// PackageDownload names one archive and the subset of its tiles that
// the region of interest actually needs.
type PackageDownload struct {
	Filename string
	Tiles    []tile.TileKey
}

// TileCount returns the number of tiles to be extracted.
func (p *Plan) TileCount() int {
	n := 0
	for _, pkg := range p.Packages {
		n += len(pkg.Tiles)
	}
	return n
}

// PlanDownload selects the tiles a map client needs when it shows
// detail up to insideMax zoom within the region and up to outsideMax
// zoom everywhere else. A nil region means full detail everywhere.
// Tiles in the empty set are diverted to Plan.EmptyTiles.
func PlanDownload(insideMax, outsideMax uint8, region *empties.Landmass, empty *empties.Set) *Plan {
	required := func(t tile.TileKey) bool {
		if t.Zoom() <= outsideMax {
			return true
		}
		if t.Zoom() > insideMax {
			return false
		}
		if region == nil {
			return true
		}
		return region.Intersects(empties.TileBound(t))
	}

	plan := &Plan{}
	for _, group := range Groups(insideMax, nil) {
		var tiles []tile.TileKey
		for _, t := range group.Tiles {
			if !required(t) {
				continue
			}
			if empty != nil && empty.Contains(t) {
				plan.EmptyTiles = append(plan.EmptyTiles, t)
			} else {
				tiles = append(tiles, t)
			}
		}
		if len(tiles) > 0 {
			plan.Packages = append(plan.Packages, PackageDownload{
				Filename: group.Filename,
				Tiles:    tiles,
			})
		}
	}
	return plan
}

// DownloadConfig parameterizes the generated download scripts. BaseURL
// is where the finished archives are published; DatasetURL and
// Attribution end up in the Leaflet attribution line.
type DownloadConfig struct {
	BaseURL     string
	DatasetURL  string
	Attribution string
	InsideMax   uint8
	OutsideMax  uint8
	HasRegion   bool
}

const dirsComment = `download_dir=$(pwd)/download   # change this if you want the downloads to go somewhere else
extraction_dir=$(pwd)/tiles    # change this if you want the extracted tiles to go somewhere else

`

// WriteDownloadScripts writes download_commands, extraction_commands,
// softlink_commands, and leaflet_code.js into dir.
func WriteDownloadScripts(dir string, plan *Plan, config DownloadConfig) error {
	if err := writeDownloadCommands(filepath.Join(dir, "download_commands"), plan, config); err != nil {
		return err
	}
	if err := writeExtractionCommands(filepath.Join(dir, "extraction_commands"), plan); err != nil {
		return err
	}
	if err := writeSoftlinkCommands(filepath.Join(dir, "softlink_commands"), plan); err != nil {
		return err
	}
	return writeLeafletCode(filepath.Join(dir, "leaflet_code.js"), config)
}

func writeDownloadCommands(path string, plan *Plan, config DownloadConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprint(w, "download_dir=$(pwd)/download   # change this if you want the downloads to go somewhere else\nmkdir -p $download_dir\n\n")
	files := make([]string, 0, len(plan.Packages)+1)
	for _, pkg := range plan.Packages {
		files = append(files, pkg.Filename+".zip")
	}
	files = append(files, "empty.png")
	for _, name := range files {
		fmt.Fprintf(w, "curl --output \"$download_dir/%s\" --location \"%s/%s\" | tee \"$download_dir/%s.log\"\n",
			name, config.BaseURL, name, name)
	}
	return w.Flush()
}

func writeExtractionCommands(path string, plan *Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprint(w, dirsComment)
	for _, pkg := range plan.Packages {
		fmt.Fprintf(w, "cat > $download_dir/%s.files <<EOF\n", pkg.Filename)
		for _, t := range pkg.Tiles {
			fmt.Fprintln(w, t.Path())
		}
		fmt.Fprintln(w, "EOF")
		fmt.Fprintf(w, "xargs -a $download_dir/%s.files unzip -d $extraction_dir $download_dir/%s.zip\n\n",
			pkg.Filename, pkg.Filename)
	}
	return w.Flush()
}

func writeSoftlinkCommands(path string, plan *Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprint(w, dirsComment)

	dirs := make(map[string]bool)
	for _, t := range plan.EmptyTiles {
		zoom, x, _ := t.ZoomXY()
		dirs[fmt.Sprintf("%d/%d", zoom, x)] = true
	}
	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	for _, d := range sorted {
		fmt.Fprintf(w, "mkdir -p $extraction_dir/%s\n", d)
	}
	fmt.Fprintln(w)
	for _, t := range plan.EmptyTiles {
		fmt.Fprintf(w, "ln -s $download_dir/empty.png $extraction_dir/%s\n", t.Path())
	}
	return w.Flush()
}

func writeLeafletCode(path string, config DownloadConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprint(w, "// change the tile URL as required\n")
	fmt.Fprint(w, "const tileUrl = `/tiles/{z}/{x}/{y}.png`;\n\n")
	attribution := fmt.Sprintf("Map data &copy; 2024 <a href=%q target=\"_blank\">%s</a>",
		config.DatasetURL, config.Attribution)
	if config.HasRegion {
		fmt.Fprintf(w, `// layerGroup with two members. The lower one is always shown, the higher one only above the given zoom level.
const lowTileLayer = L.tileLayer(tileUrl, {
  attribution: '%s',
  maxNativeZoom: %d,
});
const highTileLayer = L.tileLayer(tileUrl, {
  minZoom: %d,
  maxNativeZoom: %d,
});

const tileLayer = L.layerGroup([lowTileLayer, highTileLayer]);
`, attribution, config.OutsideMax, config.OutsideMax+1, config.InsideMax)
	} else {
		fmt.Fprintf(w, `// tiles have the same level everywhere
const tileLayer = L.tileLayer(tileUrl, {
  attribution: '%s',
  maxNativeZoom: %d,
});
`, attribution, config.InsideMax)
	}
	return w.Flush()
}
