// SPDX-License-Identifier: MIT

// Command generate-empties classifies every map tile against a
// landmass geometry and writes the list of tiles that show nothing but
// ocean. The tile renderer and the download planner both consume that
// list to skip work.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

var logger *log.Logger

func main() {
	ctx := context.Background()

	minLevel := flag.Int("min-level", 0, "minimum tile zoom level")
	maxLevel := flag.Int("max-level", 12, "maximum tile zoom level")
	landmass := flag.String("landmass", "", "GeoJSON file with landmass polygons; may be gzip, bzip2, or xz compressed")
	out := flag.String("out", "empties.txt.gz", "output file for the list of empty tiles")
	flag.Parse()

	logfile, err := createLogFile()
	if err != nil {
		log.Fatal(err)
	}
	defer logfile.Close()
	logger = log.New(logfile, "", log.Ldate|log.Ltime|log.LUTC|log.Lshortfile)

	if *landmass == "" {
		logger.Fatal("missing -landmass; pass a GeoJSON file of landmass polygons")
	}
	if *minLevel < 0 || *maxLevel > 30 || *minLevel > *maxLevel {
		logger.Fatalf("invalid zoom range %d..%d", *minLevel, *maxLevel)
	}

	r, err := empties.OpenInput(*landmass)
	if err != nil {
		logger.Fatal(err)
	}
	lm, err := empties.LoadLandmass(r, logger)
	r.Close()
	if err != nil {
		logger.Fatal(err)
	}

	ch := make(chan tile.TileKey, 10000)
	var count int64
	g, subCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return empties.Classify(subCtx, lm, uint8(*minLevel), uint8(*maxLevel), ch, logger)
	})
	g.Go(func() error {
		var err error
		count, err = empties.WriteFile(subCtx, *out, ch)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Fatal(err)
	}

	p := message.NewPrinter(language.English)
	logger.Printf("wrote %s empty tiles for zoom %d..%d to %s",
		p.Sprint(count), *minLevel, *maxLevel, *out)
}

func createLogFile() (*os.File, error) {
	logpath := filepath.Join("logs", "generate-empties.log")
	if err := os.MkdirAll("logs", os.ModePerm); err != nil {
		return nil, err
	}

	return os.OpenFile(logpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
