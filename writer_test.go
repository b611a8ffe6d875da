package crownconv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		Info: Info{
			Description: DATASET_DESC,
			URL:         DATASET_URL,
			Version:     DATASET_VERSION,
			Year:        "2026",
			Contributor: "NRAC",
			DateCreated: "2026-08-31",
		},
		Licenses:   []License{{ID: MIT_LICENSE_ID, Name: MIT_LICENSE_NAME, URL: MIT_LICENSE_URL}},
		Categories: []Category{{ID: 1, Family: "Pinaceae", Genus: "Pinus", Species: "strobus"}},
		Images: []ImageRecord{{
			ID: 0, FileName: "img.tif", Width: 1000, Height: 1000,
			License: MIT_LICENSE_ID, Sensor: "DJI P1", Resolution: 0.02,
			SpectralBands: map[string]SpectralBand{"red": {Order: 1}},
		}},
		Annotations: []Annotation{{
			ID: 1, ImageID: 0, CategoryID: 1,
			Segmentation: [][]float64{{10, 10, 40, 10, 40, 30, 10, 30, 10, 10}},
			Area:         600,
			BBox:         []float64{10, 10, 30, 20},
		}},
	}
}

func TestWriteDocument(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	require.NoError(t, WriteDocument(out, sampleDocument()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "NRAC", doc.Info.Contributor)
	require.Len(t, doc.Annotations, 1)
	assert.Equal(t, 1, doc.Annotations[0].ID)
	assert.Equal(t, 0, doc.Annotations[0].ImageID)
	assert.Equal(t, 0, doc.Annotations[0].IsCrowd)

	// key order of the root object is fixed by the struct layout
	s := string(data)
	assert.True(t, strings.Index(s, `"info"`) < strings.Index(s, `"licenses"`))
	assert.True(t, strings.Index(s, `"licenses"`) < strings.Index(s, `"categories"`))
	assert.True(t, strings.Index(s, `"categories"`) < strings.Index(s, `"images"`))
	assert.True(t, strings.Index(s, `"images"`) < strings.Index(s, `"annotations"`))

	// atomic write leaves no temp residue
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteDocumentDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, WriteDocument(a, sampleDocument()))
	require.NoError(t, WriteDocument(b, sampleDocument()))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestWriteDocumentBadTarget(t *testing.T) {
	dir := t.TempDir()
	err := WriteDocument(filepath.Join(dir, "missing", "out.json"), sampleDocument())
	assert.Error(t, err)

	// nothing — target or temp — may be left behind on failure
	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	assert.Empty(t, entries)
}
