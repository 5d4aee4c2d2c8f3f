// SPDX-License-Identifier: MIT

package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/UniStuttgart-VISUS/generate-mercator-tiles-from-srtm/internal/tile"
)

// WriteConfig holds the repository coordinates that get baked into the
// generated upload commands.
type WriteConfig struct {
	ServerURL    string
	PersistentID string
}

// groupMetadata is the sidecar JSON the repository expects alongside
// each uploaded archive.
type groupMetadata struct {
	Description    string   `json:"description"`
	DirectoryLabel string   `json:"directoryLabel"`
	Categories     []string `json:"categories"`
	Restrict       string   `json:"restrict"`
	TabIngest      string   `json:"tabIngest"`
}

// Write creates dir and fills it with one .contents and one .metadata
// file per group. Next to dir, it writes manifest.txt plus the
// archive_commands and upload_commands shell scripts. dir must not
// exist yet.
func Write(dir string, groups []Group, config WriteConfig) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("archive directory %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	parent := filepath.Dir(dir)
	dirName := filepath.Base(dir)

	manifest, err := os.Create(filepath.Join(parent, "manifest.txt"))
	if err != nil {
		return err
	}
	defer manifest.Close()
	mw := bufio.NewWriter(manifest)

	archiveCmds, err := os.Create(filepath.Join(parent, "archive_commands"))
	if err != nil {
		return err
	}
	defer archiveCmds.Close()
	aw := bufio.NewWriter(archiveCmds)
	fmt.Fprintf(aw, "archive_dir=$(pwd)/%s\n", dirName)
	fmt.Fprintln(aw, "tile_dir=$(pwd)/tiles")
	fmt.Fprintln(aw, "cd $tile_dir")

	uploadCmds, err := os.Create(filepath.Join(parent, "upload_commands"))
	if err != nil {
		return err
	}
	defer uploadCmds.Close()
	uw := bufio.NewWriter(uploadCmds)
	fmt.Fprintln(uw, "export API_TOKEN=XXXX  # insert repository token here")
	fmt.Fprintf(uw, "export SERVER_URL=%q\n", config.ServerURL)
	fmt.Fprintf(uw, "export PERSISTENT_ID=%q\n", config.PersistentID)

	for i, group := range groups {
		fmt.Fprintf(mw, "%s.zip:\n", group.Filename)
		if err := writeContents(filepath.Join(dir, group.Filename+".contents"), group.Tiles, mw); err != nil {
			return err
		}
		if err := writeMetadata(filepath.Join(dir, group.Filename+".metadata"), group.Description); err != nil {
			return err
		}

		fmt.Fprintf(aw, "zip -q /tmp/%s.zip -@ < $archive_dir/%s.contents\n",
			group.Filename, group.Filename)
		fmt.Fprintf(aw, "( cd /tmp; zip -q $archive_dir/%s.zip.zip %s.zip )\n",
			group.Filename, group.Filename)
		fmt.Fprintf(aw, "rm /tmp/%s.zip\n", group.Filename)

		fmt.Fprintf(uw,
			`curl -H X-Dataverse-key:$API_TOKEN -X POST -F "file=@%s/%s.zip.zip;type=application/zip" -F "jsonData=@%s/%s.metadata" "$SERVER_URL/api/datasets/:persistentId/add?persistentId=$PERSISTENT_ID" > %s/%s.upload.log`+"\n",
			dirName, group.Filename, dirName, group.Filename, dirName, group.Filename)

		if i < len(groups)-1 {
			fmt.Fprintln(mw)
		}
	}

	if err := mw.Flush(); err != nil {
		return err
	}
	if err := aw.Flush(); err != nil {
		return err
	}
	return uw.Flush()
}

// writeContents writes one tile path per line, mirroring each line
// indented into the manifest.
func writeContents(path string, tiles []tile.TileKey, manifest *bufio.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, t := range tiles {
		p := t.Path()
		if _, err := fmt.Fprintln(w, p); err != nil {
			f.Close()
			return err
		}
		fmt.Fprintf(manifest, "  %s\n", p)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMetadata(path string, description string) error {
	data, err := json.Marshal(groupMetadata{
		Description:    description,
		DirectoryLabel: "tiles",
		Categories:     []string{"Data"},
		Restrict:       "false",
		TabIngest:      "false",
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
