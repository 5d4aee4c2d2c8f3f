// SPDX-License-Identifier: MIT

// Command generate-tiles renders the hillshaded tile pyramid from SRTM
// elevation granules, skipping tiles that a previous generate-empties
// run classified as empty. Interrupted runs can be resumed by running
// the command again with the same arguments.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/pipeline"
)

var logger *log.Logger

func main() {
	ctx := context.Background()

	minLevel := flag.Int("min-level", 0, "minimum tile zoom level")
	maxLevel := flag.Int("max-level", 12, "maximum tile zoom level")
	emptiesPath := flag.String("empties", "empties.txt.gz", "list of empty tiles written by generate-empties")
	dataDir := flag.String("data", "data", "directory with SRTM .hgt granules")
	tileDir := flag.String("out", "tiles", "output directory for the tile tree")
	workers := flag.Int("workers", 2, "number of parallel block renderers")
	flag.Parse()

	logfile, err := createLogFile()
	if err != nil {
		log.Fatal(err)
	}
	defer logfile.Close()
	logger = log.New(logfile, "", log.Ldate|log.Ltime|log.LUTC|log.Lshortfile)

	if *maxLevel < 7 {
		// Below that, a single render block would span most of the
		// world and need hundreds of gigabytes of elevation data.
		logger.Fatal("maximum tile level must be at least 7")
	}
	if *minLevel < 0 || *minLevel > *maxLevel {
		logger.Fatalf("invalid zoom range %d..%d", *minLevel, *maxLevel)
	}

	empty, err := empties.LoadSet(*emptiesPath)
	if err != nil {
		logger.Fatal(err)
	}
	p := message.NewPrinter(language.English)
	logger.Printf("loaded %s empty tiles from %s", p.Sprint(empty.Len()), *emptiesPath)

	if err := pipeline.CheckResumable(*tileDir); err != nil {
		logger.Fatal(err)
	}

	err = pipeline.Generate(ctx, pipeline.Config{
		MinZoom: uint8(*minLevel),
		MaxZoom: uint8(*maxLevel),
		DataDir: *dataDir,
		TileDir: *tileDir,
		Workers: *workers,
		Empties: empty,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("tile tree at %s is complete for zoom %d..%d", *tileDir, *minLevel, *maxLevel)
}

func createLogFile() (*os.File, error) {
	logpath := filepath.Join("logs", "generate-tiles.log")
	if err := os.MkdirAll("logs", os.ModePerm); err != nil {
		return nil, err
	}

	return os.OpenFile(logpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
