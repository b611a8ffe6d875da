package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

// Raster file extensions recognized when scanning an image folder.
var rasterExts = []string{".tif", ".tiff", ".jpg", ".jpeg", ".png"}

// GetTmpFilePath derives a unique sibling path for atomic writes.
func GetTmpFilePath(path string) string {
	return path + "." + uuid.NewString() + ".tmp"
}

// FindRasters lists raster files directly under dir, sorted by base name.
func FindRasters(dir string) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(ent.Name()))
		for _, known := range rasterExts {
			if ext == known {
				paths = append(paths, filepath.Join(dir, ent.Name()))
				break
			}
		}
	}
	sort.Strings(paths)
	return
}

// ShpEncoding reads the .cpg sidecar of a shapefile; utf8 reports whether the
// declared attribute encoding is UTF-8 (missing sidecar counts as UTF-8).
func ShpEncoding(shp string) (enc string, utf8 bool) {
	utf8 = true
	cpg := strings.TrimSuffix(shp, FILE_EXT_SHP) + FILE_EXT_CPG
	b, err := os.ReadFile(cpg)
	if err != nil || len(b) == 0 {
		return
	}
	enc = strings.ToUpper(strings.TrimSpace(string(b)))
	utf8 = enc == UTF_8 || enc == UTF8
	return
}

// ReadCSV loads a whole CSV table, returning the header row and data rows.
// Content passes through DecodeTable so legacy-encoded exports still parse.
func ReadCSV(path string) (header []string, rows [][]string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	r := csv.NewReader(strings.NewReader(B2S(DecodeTable(raw))))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return
	}
	header = records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows = records[1:]
	return
}
