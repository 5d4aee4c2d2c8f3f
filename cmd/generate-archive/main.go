// SPDX-License-Identifier: MIT

// Command generate-archive splits the rendered tile tree into
// zip-sized groups and writes the member lists, metadata, and shell
// command scripts for packaging and uploading them to a research data
// repository. With -storage-key, the generated files are also put into
// S3-compatible object storage.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/archive"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/empties"
	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/storage"
)

var logger *log.Logger

func main() {
	ctx := context.Background()

	maxLevel := flag.Int("max-level", 12, "maximum tile zoom level")
	emptiesPath := flag.String("empties", "empties.txt.gz", "list of empty tiles written by generate-empties")
	archiveDir := flag.String("archive-dir", "archive", "output directory for the archive manifests; must not exist yet")
	serverURL := flag.String("server-url", "https://darus.uni-stuttgart.de/", "base URL of the data repository")
	persistentID := flag.String("persistent-id", "doi:10.18419/darus-3837", "persistent identifier of the dataset")
	storageKey := flag.String("storage-key", "", "path to key with storage access credentials")
	bucket := flag.String("bucket", "tiles", "storage bucket for uploaded manifests")
	flag.Parse()

	logfile, err := createLogFile()
	if err != nil {
		log.Fatal(err)
	}
	defer logfile.Close()
	logger = log.New(logfile, "", log.Ldate|log.Ltime|log.LUTC|log.Lshortfile)

	var store storage.Storage
	if *storageKey != "" {
		store, err = storage.NewStorage(*storageKey)
		if err != nil {
			logger.Fatal(err)
		}
	}

	empty, err := empties.LoadSet(*emptiesPath)
	if err != nil {
		logger.Fatal(err)
	}

	groups := archive.Groups(uint8(*maxLevel), empty)
	p := message.NewPrinter(language.English)
	total := 0
	for _, g := range groups {
		total += len(g.Tiles)
	}
	logger.Printf("split %s non-empty tiles into %d archive groups",
		p.Sprint(total), len(groups))

	err = archive.Write(*archiveDir, groups, archive.WriteConfig{
		ServerURL:    *serverURL,
		PersistentID: *persistentID,
	})
	if err != nil {
		logger.Fatal(err)
	}

	if store != nil {
		if err := storage.UploadArchive(ctx, store, *bucket, *archiveDir, logger); err != nil {
			logger.Fatal(err)
		}
	}
}

func createLogFile() (*os.File, error) {
	logpath := filepath.Join("logs", "generate-archive.log")
	if err := os.MkdirAll("logs", os.ModePerm); err != nil {
		return nil, err
	}

	return os.OpenFile(logpath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
