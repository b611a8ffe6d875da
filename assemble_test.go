package crownconv

import (
	"testing"

	"github.com/lukeroth/gdal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

// testRasterRefAt builds a synthetic georeferencing: one unit per pixel,
// origin at (originX, 0), so world coordinates equal pixel coordinates
// shifted by originX.
func testRasterRefAt(originX float64, w, h, bands int) *RasterRef {
	gt := Affine{originX, 1, 0, 0, 0, 1}
	inv, _ := gt.Invert()
	ref := &RasterRef{
		Path:      "img.tif",
		Width:     w,
		Height:    h,
		Bands:     bands,
		Transform: gt,
		Inverse:   inv,
		SRID:      32617,
	}
	ref.ExtentWKT = ref.extentWkt()
	return ref
}

func testRasterRef(w, h int, bands int) *RasterRef {
	return testRasterRefAt(0, w, h, bands)
}

func testAssembler(g *Toolbox, cands []*candidate) *assembler {
	return &assembler{
		g: g,
		tax: &Taxonomy{byID: map[int]Category{
			1: {ID: 1, Family: "Fagaceae", Genus: "Quercus", Species: "rubra"},
		}},
		cands:     cands,
		layerSrid: 32617,
		opts:      &Options{OnUnmatched: PolicySkip},
		imgAlloc:  newIDAllocator(FIRST_IMAGE_ID),
		annAlloc:  newIDAllocator(FIRST_ANNOTATION_ID),
		doc:       &Document{},
		sum:       &Summary{},
	}
}

func wkbPolygon(t *testing.T, g *Toolbox, wkt string, srid int) GdalGeo {
	t.Helper()
	ref, err := g.getSridRef(srid)
	require.NoError(t, err)
	geo, err := gdal.CreateFromWKT(wkt, ref)
	require.NoError(t, err)
	defer geo.Destroy()
	wkb, err := geo.ToWKB()
	require.NoError(t, err)
	return wkb
}

func TestProcessUnknownSpeciesAborts(t *testing.T) {
	a := testAssembler(NewToolbox(), nil)
	err := a.process(Crown{Index: 7, SpeciesID: 99})
	require.ErrorIs(t, err, ErrUnknownCategory)
	assert.Empty(t, a.doc.Images)
	assert.Empty(t, a.doc.Annotations)
}

func TestProcessCrownInsideSingleImage(t *testing.T) {
	g := NewToolbox()
	cand := &candidate{
		ref: testRasterRef(100, 100, 3),
		rec: ImageRecord{ID: -1, FileName: "a.tif"},
	}
	a := testAssembler(g, []*candidate{cand})
	wkb := wkbPolygon(t, g, "POLYGON((10 10,40 10,40 30,10 30,10 10))", 32617)

	require.NoError(t, a.process(Crown{Index: 0, SpeciesID: 1, Geom: wkb}))

	require.Len(t, a.doc.Images, 1)
	assert.Equal(t, 0, a.doc.Images[0].ID)
	require.Len(t, a.doc.Annotations, 1)
	ann := a.doc.Annotations[0]
	assert.Equal(t, 1, ann.ID)
	assert.Equal(t, 0, ann.ImageID)
	assert.Equal(t, 1, ann.CategoryID)
	assert.InDelta(t, 600.0, ann.Area, 1e-6)
	require.Len(t, ann.BBox, 4)
	assert.InDelta(t, 10.0, ann.BBox[0], 1e-6)
	assert.InDelta(t, 10.0, ann.BBox[1], 1e-6)
	assert.InDelta(t, 30.0, ann.BBox[2], 1e-6)
	assert.InDelta(t, 20.0, ann.BBox[3], 1e-6)
	assert.Zero(t, a.sum.Skipped)
}

func TestProcessCrownStraddlingTwoImages(t *testing.T) {
	g := NewToolbox()
	left := &candidate{
		ref: testRasterRefAt(0, 100, 100, 3),
		rec: ImageRecord{ID: -1, FileName: "left.tif"},
	}
	right := &candidate{
		ref: testRasterRefAt(100, 100, 100, 3),
		rec: ImageRecord{ID: -1, FileName: "right.tif"},
	}
	a := testAssembler(g, []*candidate{left, right})
	// 20x20 crown centered on the seam at world x=100 (area 400)
	wkb := wkbPolygon(t, g, "POLYGON((90 10,110 10,110 30,90 30,90 10))", 32617)

	require.NoError(t, a.process(Crown{Index: 0, SpeciesID: 1, Geom: wkb}))

	require.Len(t, a.doc.Images, 2)
	assert.Equal(t, 0, a.doc.Images[0].ID)
	assert.Equal(t, "left.tif", a.doc.Images[0].FileName)
	assert.Equal(t, 1, a.doc.Images[1].ID)
	assert.Equal(t, "right.tif", a.doc.Images[1].FileName)

	require.Len(t, a.doc.Annotations, 2)
	var total float64
	for _, ann := range a.doc.Annotations {
		assert.Equal(t, 1, ann.CategoryID)
		assert.InDelta(t, 200.0, ann.Area, 1e-6)
		total += ann.Area
	}
	// clipping never loses area: the halves sum back to the whole crown
	assert.InDelta(t, 400.0, total, 1e-6)
	assert.Equal(t, 0, a.doc.Annotations[0].ImageID)
	assert.Equal(t, 1, a.doc.Annotations[1].ImageID)
	// the right half lands at the left edge of the second image's grid
	assert.InDelta(t, 90.0, a.doc.Annotations[0].BBox[0], 1e-6)
	assert.InDelta(t, 0.0, a.doc.Annotations[1].BBox[0], 1e-6)
}

func TestProcessUnmatchedCrownPolicy(t *testing.T) {
	g := NewToolbox()
	cand := &candidate{
		ref: testRasterRef(100, 100, 3),
		rec: ImageRecord{ID: -1, FileName: "a.tif"},
	}
	wkb := wkbPolygon(t, g, "POLYGON((500 500,520 500,520 520,500 520,500 500))", 32617)

	a := testAssembler(g, []*candidate{cand})
	require.NoError(t, a.process(Crown{Index: 3, SpeciesID: 1, Geom: wkb}))
	assert.Equal(t, 1, a.sum.Skipped)
	assert.Empty(t, a.doc.Images)

	a = testAssembler(g, []*candidate{cand})
	a.opts.OnUnmatched = PolicyFail
	err := a.process(Crown{Index: 3, SpeciesID: 1, Geom: wkb})
	require.ErrorIs(t, err, ErrUnmatchedCrown)
}

func TestBuildImageRecordRGB(t *testing.T) {
	var sum Summary
	desc := &ImageDescriptor{
		FileName:  "img.tif",
		Sensor:    "DJI P1",
		ImageType: "rgb",
		Bands: map[string]BandMeta{
			"red": {Wavelength: f64(650)},
		},
	}
	rec, err := buildImageRecord(desc, testRasterRef(1000, 800, 3), &sum)
	require.NoError(t, err)
	assert.Equal(t, -1, rec.ID)
	assert.Equal(t, 1000, rec.Width)
	assert.Equal(t, 800, rec.Height)
	assert.Equal(t, 1.0, rec.Resolution)
	require.Len(t, rec.SpectralBands, 3)
	assert.Equal(t, 1, rec.SpectralBands["red"].Order)
	assert.Equal(t, 2, rec.SpectralBands["green"].Order)
	assert.Equal(t, 3, rec.SpectralBands["blue"].Order)
	require.NotNil(t, rec.SpectralBands["red"].Wavelength)
	assert.Equal(t, 650.0, *rec.SpectralBands["red"].Wavelength)
	assert.Nil(t, rec.SpectralBands["green"].Wavelength)
	assert.Empty(t, sum.Warnings)
}

func TestBuildImageRecordRGBTooFewBands(t *testing.T) {
	var sum Summary
	desc := &ImageDescriptor{FileName: "img.tif", Sensor: "DJI P1", ImageType: "rgb"}
	rec, err := buildImageRecord(desc, testRasterRef(10, 10, 1), &sum)
	require.NoError(t, err)
	assert.Empty(t, rec.SpectralBands)
	assert.Len(t, sum.Warnings, 1)
}

func TestBuildImageRecordMultispectral(t *testing.T) {
	var sum Summary
	desc := &ImageDescriptor{
		FileName:  "ms.tif",
		Sensor:    "MicaSense RedEdge-MX",
		ImageType: "multispectral",
		Bands: map[string]BandMeta{
			"blue":    {Wavelength: f64(475), Bandwidth: f64(32)},
			"nir":     {Wavelength: f64(842), Bandwidth: f64(57)},
			"redEdge": {Wavelength: f64(717)}, // missing bandwidth, skipped
		},
	}
	rec, err := buildImageRecord(desc, testRasterRef(100, 100, 5), &sum)
	require.NoError(t, err)
	require.Len(t, rec.SpectralBands, 2)
	// orders follow the sorted position in the declared band set
	assert.Equal(t, 1, rec.SpectralBands["blue"].Order)
	assert.Equal(t, 2, rec.SpectralBands["nir"].Order)
	assert.NotContains(t, rec.SpectralBands, "redEdge")
	assert.Len(t, sum.Warnings, 1)
}

func TestBuildImageRecordMultispectralNoBands(t *testing.T) {
	var sum Summary
	desc := &ImageDescriptor{FileName: "ms.tif", Sensor: "X", ImageType: "multispectral"}
	_, err := buildImageRecord(desc, testRasterRef(10, 10, 5), &sum)
	assert.ErrorContains(t, err, "no band metadata")

	desc.Bands = map[string]BandMeta{"nir": {Wavelength: f64(842)}}
	_, err = buildImageRecord(desc, testRasterRef(10, 10, 5), &sum)
	assert.ErrorContains(t, err, "no valid bands")
}

func TestBuildImageRecordUnknownType(t *testing.T) {
	var sum Summary
	desc := &ImageDescriptor{FileName: "x.tif", Sensor: "X", ImageType: "thermal"}
	_, err := buildImageRecord(desc, testRasterRef(10, 10, 1), &sum)
	assert.ErrorContains(t, err, "unknown image_type")
}

func TestAreaMatchesSegmentationBBox(t *testing.T) {
	// a crown footprint mapped through an identity-like transform: the
	// shoelace area and bbox derived from the same ring must agree
	ring := []float64{10, 10, 40, 10, 40, 30, 10, 30, 10, 10}
	area := shoelaceArea(ring)
	bbox := ringsBBox([][]float64{ring})
	assert.InDelta(t, 600.0, area, 1e-9)
	assert.Equal(t, []float64{10, 10, 30, 20}, bbox)
	assert.LessOrEqual(t, area, bbox[2]*bbox[3])
}
