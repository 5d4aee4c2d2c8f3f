// SPDX-License-Identifier: MIT

// Command generate-download emits the shell commands to fetch and
// unpack a subset of the published tile archives: full detail within
// an optional region of interest, coarser detail everywhere else.
// Empty tiles are symlinked to the shared placeholder instead of being
// downloaded. A ready-made Leaflet layer snippet is written alongside.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/archive"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
)

var logger *log.Logger

func main() {
	polygon := flag.String("polygon", "", "optional GeoJSON region of interest; full detail inside, coarse outside")
	insideMax := flag.Int("inside-max-level", 12, "maximum tile zoom level inside the region")
	outsideMax := flag.Int("outside-max-level", 5, "maximum tile zoom level outside the region")
	emptiesPath := flag.String("empties", "empties.txt.gz", "list of empty tiles written by generate-empties")
	baseURL := flag.String("base-url", "https://darus.uni-stuttgart.de/api/access", "base URL the published archives can be fetched from")
	datasetURL := flag.String("dataset-url", "https://darus.uni-stuttgart.de/dataset.xhtml?persistentId=doi:10.18419/darus-3837", "dataset landing page, linked from the map attribution")
	attribution := flag.String("attribution", "Hillshaded relief tiles", "attribution text for the Leaflet layer")
	outDir := flag.String("out", ".", "directory for the generated command files")
	flag.Parse()

	logfile, err := createLogFile()
	if err != nil {
		log.Fatal(err)
	}
	defer logfile.Close()
	logger = log.New(logfile, "", log.Ldate|log.Ltime|log.LUTC|log.Lshortfile)

	if *insideMax < *outsideMax {
		logger.Fatal("inside maximum tile level must be larger or equal to outside maximum level")
	}

	var region *empties.Landmass
	if *polygon != "" {
		r, err := empties.OpenInput(*polygon)
		if err != nil {
			logger.Fatal(err)
		}
		region, err = empties.LoadLandmass(r, logger)
		r.Close()
		if err != nil {
			logger.Fatal(err)
		}
	}

	empty, err := empties.LoadSet(*emptiesPath)
	if err != nil {
		logger.Fatal(err)
	}

	plan := archive.PlanDownload(uint8(*insideMax), uint8(*outsideMax), region, empty)
	p := message.NewPrinter(language.English)
	logger.Printf("identified %s tiles to be downloaded across %d zip files; %s empty tiles can be symlinked",
		p.Sprint(plan.TileCount()), len(plan.Packages), p.Sprint(len(plan.EmptyTiles)))

	err = archive.WriteDownloadScripts(*outDir, plan, archive.DownloadConfig{
		BaseURL:     *baseURL,
		DatasetURL:  *datasetURL,
		Attribution: *attribution,
		InsideMax:   uint8(*insideMax),
		OutsideMax:  uint8(*outsideMax),
		HasRegion:   region != nil,
	})
	if err != nil {
		logger.Fatal(err)
	}
}

func createLogFile() (*os.File, error) {
	logpath := filepath.Join("logs", "generate-download.log")
	if err := os.MkdirAll("logs", os.ModePerm); err != nil {
		return nil, err
	}

	return os.OpenFile(logpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
