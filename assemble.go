package crownconv

import (
	"fmt"
	"sort"

	"github.com/nrac-wvu/crownconv/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// candidate is one usable image: its georeferencing plus the output record,
// which stays unlisted (id -1) until the first annotation references it.
type candidate struct {
	ref *RasterRef
	rec ImageRecord
}

// assembler turns crowns into annotations against the candidate image set.
type assembler struct {
	g         *Toolbox
	tax       *Taxonomy
	cands     []*candidate
	layerSrid int
	opts      *Options
	imgAlloc  *idAllocator
	annAlloc  *idAllocator
	doc       *Document
	sum       *Summary
}

// process emits zero or more annotations for one crown: one per candidate
// image whose extent the crown intersects, clipped to that image's grid.
// An unresolvable species id is fatal; bad geometry and unmatched crowns are
// recoverable per the configured policy.
func (a *assembler) process(crown Crown) (err error) {
	cat, known := a.tax.Resolve(crown.SpeciesID)
	if !known {
		return fmt.Errorf("%w: %d (feature %d)", ErrUnknownCategory, crown.SpeciesID, crown.Index)
	}
	if len(crown.Geom) == 0 {
		a.skip("feature %d: unreadable geometry", crown.Index)
		return nil
	}
	ref, err := a.g.getSridRef(a.layerSrid)
	if err != nil {
		return
	}
	geo, err := a.g.parseWKB(crown.Geom, ref)
	if err != nil {
		a.skip("feature %d: bad WKB geometry", crown.Index)
		return nil
	}
	var gc []destroyable
	gc = append(gc, geo)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	if t := geo.Type(); t != gdal.GT_Polygon && t != gdal.GT_MultiPolygon {
		a.skip("feature %d: non-polygon geometry", crown.Index)
		return nil
	}
	if geo.IsEmpty() || !geo.IsValid() {
		a.skip("feature %d: empty or invalid polygon", crown.Index)
		return nil
	}
	matched := 0
	for _, cand := range a.cands {
		work := geo
		if a.layerSrid != cand.ref.SRID {
			work = geo.Clone()
			gc = append(gc, work)
			if err = a.g.transformGeo(work, a.layerSrid, cand.ref.SRID); err != nil {
				return
			}
		}
		rRef, e := a.g.getSridRef(cand.ref.SRID)
		if e != nil {
			return e
		}
		ext, e := a.g.parseWKT(cand.ref.ExtentWKT, rRef)
		if e != nil {
			return e
		}
		gc = append(gc, ext)
		if !work.Intersects(ext) {
			continue
		}
		clipped := work.Intersection(ext)
		gc = append(gc, clipped)
		if clipped.IsEmpty() {
			continue
		}
		rings := pixelRings(clipped, cand.ref)
		if len(rings) == 0 {
			continue
		}
		var area float64
		for _, ring := range rings {
			area += shoelaceArea(ring)
		}
		if area == 0 {
			continue
		}
		if cand.rec.ID < 0 {
			cand.rec.ID = a.imgAlloc.Next()
			a.doc.Images = append(a.doc.Images, cand.rec)
		}
		a.doc.Annotations = append(a.doc.Annotations, Annotation{
			ID:           a.annAlloc.Next(),
			ImageID:      cand.rec.ID,
			CategoryID:   cat.ID,
			Segmentation: rings,
			Area:         area,
			BBox:         ringsBBox(rings),
		})
		matched++
	}
	if matched == 0 {
		if a.opts.OnUnmatched == PolicyFail {
			return fmt.Errorf("%w: feature %d", ErrUnmatchedCrown, crown.Index)
		}
		a.skip("feature %d: intersects no image", crown.Index)
	}
	return nil
}

func (a *assembler) skip(format string, args ...any) {
	a.sum.warnf(format, args...)
	a.sum.Skipped++
	log.Warn("crown skipped", zap.String("reason", fmt.Sprintf(format, args...)))
}

// pixelRings maps the exterior ring of each polygon part through the raster's
// inverse geotransform, clamped to the pixel grid. Non-polygonal parts of a
// clip result (boundary touches) are dropped.
func pixelRings(geo gdal.Geometry, ref *RasterRef) (rings [][]float64) {
	switch geo.Type() {
	case gdal.GT_Polygon:
		if ring := pixelRing(geo, ref); len(ring) > 0 {
			rings = append(rings, ring)
		}
	case gdal.GT_MultiPolygon, gdal.GT_GeometryCollection:
		for i, n := 0, geo.GeometryCount(); i < n; i++ {
			sub := geo.Geometry(i)
			if sub.Type() != gdal.GT_Polygon {
				continue
			}
			if ring := pixelRing(sub, ref); len(ring) > 0 {
				rings = append(rings, ring)
			}
		}
	}
	return
}

func pixelRing(poly gdal.Geometry, ref *RasterRef) (flat []float64) {
	if poly.GeometryCount() == 0 {
		return
	}
	ring := poly.Geometry(0) // exterior ring
	n := ring.PointCount()
	if n < 4 { // a closed triangle needs 4 vertices
		return
	}
	flat = make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		x, y, _ := ring.Point(i)
		col, row := ref.Inverse.Apply(x, y)
		flat = append(flat, col, row)
	}
	clampRing(flat, float64(ref.Width), float64(ref.Height))
	return
}

// buildImageRecord merges the metadata descriptor with the georeferencing
// read from the raster itself. Band handling follows the sensor type: RGB
// rasters get the fixed red/green/blue ordering, multispectral rasters take
// their band set from the metadata table.
func buildImageRecord(desc *ImageDescriptor, ref *RasterRef, sum *Summary) (rec ImageRecord, err error) {
	rec = ImageRecord{
		ID:            -1,
		FileName:      desc.FileName,
		Width:         ref.Width,
		Height:        ref.Height,
		DateCaptured:  desc.DateCaptured,
		JulianDay:     desc.JulianDay,
		TimeCaptured:  desc.TimeCaptured,
		License:       MIT_LICENSE_ID,
		Sensor:        desc.Sensor,
		Altitude:      desc.Altitude,
		Resolution:    ref.Transform.PixelSize(),
		State:         desc.State,
		County:        desc.County,
		LocationDesc:  desc.LocationDesc,
		SpectralBands: map[string]SpectralBand{},
	}
	switch desc.ImageType {
	case IMAGE_TYPE_RGB:
		if ref.Bands < 3 {
			sum.warnf("rgb image %s has fewer than 3 bands (%d)", desc.FileName, ref.Bands)
			break
		}
		for i, band := range rgbBandOrder {
			sb := SpectralBand{Order: i + 1}
			if bm, ok := desc.Bands[band]; ok {
				sb.Wavelength = bm.Wavelength
				sb.Bandwidth = bm.Bandwidth
			}
			rec.SpectralBands[band] = sb
		}
	case IMAGE_TYPE_MULTI:
		names := make([]string, 0, len(desc.Bands))
		for name := range desc.Bands {
			names = append(names, name)
		}
		if len(names) == 0 {
			err = fmt.Errorf("multispectral image %s has no band metadata", desc.FileName)
			return
		}
		sort.Strings(names)
		for i, name := range names {
			bm := desc.Bands[name]
			if bm.Wavelength == nil || bm.Bandwidth == nil {
				sum.warnf("image %s: band %s missing wavelength or bandwidth, skipped", desc.FileName, name)
				continue
			}
			rec.SpectralBands[name] = SpectralBand{
				Wavelength: bm.Wavelength,
				Bandwidth:  bm.Bandwidth,
				Order:      i + 1,
			}
		}
		if len(rec.SpectralBands) == 0 {
			err = fmt.Errorf("multispectral image %s has no valid bands", desc.FileName)
			return
		}
	default:
		err = fmt.Errorf("image %s: unknown image_type %q", desc.FileName, desc.ImageType)
	}
	return
}
