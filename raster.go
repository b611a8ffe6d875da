package crownconv

import (
	"github.com/nrac-wvu/crownconv/log"

	godal "github.com/airbusgeo/godal"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// RasterRef is the georeferencing of one raster: pixel dimensions, the affine
// transform in both directions, the projection srid and the footprint of the
// pixel grid in that projection.
type RasterRef struct {
	Path      string
	Width     int
	Height    int
	Bands     int
	Transform Affine
	Inverse   Affine
	SRID      int
	ExtentWKT string
}

// OpenRaster reads the georeferencing of a raster file, memoized per path
// since every crown touching the image needs the same transform.
func (g *Toolbox) OpenRaster(path string) (ref *RasterRef, err error) {
	if cached, ok := g.rasters[path]; ok {
		return cached, nil
	}
	sds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		err = ErrInvalidRaster
		return
	}
	defer sds.Close()

	st := sds.Structure()
	gt, err := sds.GeoTransform()
	if err != nil {
		log.Error(g.logTag+"raster has no geotransform", zap.String("path", path), zap.Error(err))
		err = ErrNoGeoref
		return
	}
	proj := sds.Projection()
	if proj == "" {
		log.Error(g.logTag+"raster has no projection", zap.String("path", path))
		err = ErrNoGeoref
		return
	}
	sp := gdal.CreateSpatialReference(proj)
	srid, err := g.getSrid(sp)
	sp.Destroy()
	if err != nil {
		log.Error(g.logTag+"raster srid unresolved", zap.String("path", path), zap.Error(err))
		return
	}

	ref = &RasterRef{
		Path:      path,
		Width:     st.SizeX,
		Height:    st.SizeY,
		Bands:     st.NBands,
		Transform: Affine(gt),
		SRID:      srid,
	}
	if ref.Inverse, err = ref.Transform.Invert(); err != nil {
		log.Error(g.logTag+"raster geotransform singular", zap.String("path", path))
		return
	}
	ref.ExtentWKT = ref.extentWkt()
	g.rasters[path] = ref
	log.Info(g.logTag+"raster georeferencing read",
		zap.String("path", path),
		zap.Int("width", ref.Width), zap.Int("height", ref.Height),
		zap.Int("srid", srid))
	return
}

// extentWkt is the footprint of the pixel grid in the raster's projection;
// the four corners are mapped separately so rotated transforms stay correct.
func (r *RasterRef) extentWkt() string {
	w, h := float64(r.Width), float64(r.Height)
	var pts [4][2]float64
	pts[0][0], pts[0][1] = r.Transform.Apply(0, 0)
	pts[1][0], pts[1][1] = r.Transform.Apply(w, 0)
	pts[2][0], pts[2][1] = r.Transform.Apply(w, h)
	pts[3][0], pts[3][1] = r.Transform.Apply(0, h)
	return cornersToWkt(pts)
}
