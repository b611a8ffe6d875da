package crownconv

import (
	"strconv"
	"sync"

	"github.com/nrac-wvu/crownconv/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// Toolbox wraps the GDAL handles shared across one conversion run: reusable
// spatial references keyed by srid and georeferencing info keyed by raster
// path.
type Toolbox struct {
	refMap  map[int]gdal.SpatialReference
	rasters map[string]*RasterRef
	rLock   sync.Mutex
	logTag  string
}

// Memory objects created by the GDAL C library need an explicit Destroy.
type destroyable interface {
	Destroy()
}

func NewToolbox() *Toolbox {
	return &Toolbox{
		refMap:  map[int]gdal.SpatialReference{},
		rasters: map[string]*RasterRef{},
		logTag:  "Toolbox:",
	}
}

// getSridRef returns the cached spatial reference for srid (reused for the
// whole run, so never destroyed here).
func (g *Toolbox) getSridRef(srid int) (ref gdal.SpatialReference, err error) {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[srid]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromEPSG(srid); err != nil {
		log.Error(g.logTag+"set ref srid failed", zap.Int("srid", srid), zap.Error(err))
		ref.Destroy()
		return
	}
	// Keep data axes in (lon,lat) order regardless of what the CRS declares;
	// both the shapefile layer and the raster geotransform use that order.
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	g.refMap[srid] = ref
	return
}

// getSrid extracts the EPSG id from a spatial reference.
func (g *Toolbox) getSrid(sp gdal.SpatialReference) (srid int, err error) {
	rawId, ok := sp.AttrValue("AUTHORITY", 1)
	if !ok {
		err = ErrVoidSrid
		return
	}
	srid, err = strconv.Atoi(rawId)
	log.Debug(g.logTag+"got srid from spatial ref", zap.String("id", rawId))
	return
}

func (g *Toolbox) parseWKB(wkb GdalGeo, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKB(wkb, ref, len(wkb))
	if err != nil {
		log.Error(g.logTag+"parse wkb failed", zap.Error(err))
	}
	return
}

func (g *Toolbox) parseWKT(wkt string, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		log.Error(g.logTag+"parse wkt failed", zap.Error(err))
		err = ErrInvalidWKT
	}
	return
}

// transformGeo reprojects geo in place when the source and target srid differ.
func (g *Toolbox) transformGeo(geo gdal.Geometry, srid, tSrid int) (err error) {
	if srid == tSrid {
		return
	}
	tRef, err := g.getSridRef(tSrid)
	if err != nil {
		return
	}
	if err = geo.TransformTo(tRef); err != nil {
		log.Error(g.logTag+"geo transform failed", zap.Int("from", srid), zap.Int("to", tSrid), zap.Error(err))
	}
	return
}
