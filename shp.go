package crownconv

import (
	"fmt"

	"github.com/nrac-wvu/crownconv/log"
	"github.com/nrac-wvu/crownconv/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// LoadCrowns reads every feature of the crown-polygon layer, returning the
// features in layer order together with the layer's srid. Geometry is kept
// as WKB; validity is judged later, per crown, so one bad feature does not
// fail the load.
func (g *Toolbox) LoadCrowns(shp, speciesField string) (crowns []Crown, srid int, err error) {
	log.Info(g.logTag+"reading crown layer", zap.String("shp", shp))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	if srid, err = g.getSrid(layer.SpatialReference()); err != nil {
		return
	}
	idIdx, err := g.speciesFieldIndex(layer, shp, speciesField)
	if err != nil {
		return
	}
	n := 128
	if nf, ok := layer.FeatureCount(false); ok && nf > 0 {
		n = nf
	}
	crowns = make([]Crown, 0, n)
	var (
		feature *gdal.Feature
		wkb     []byte
		e       error
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		geo := feature.Geometry()
		if wkb, e = geo.ToWKB(); e != nil {
			log.Error(g.logTag+"wkb convert failed", zap.Int("feature", len(crowns)), zap.Error(e))
			wkb = nil
		}
		crowns = append(crowns, Crown{
			Index:     len(crowns),
			SpeciesID: feature.FieldAsInteger(idIdx),
			Geom:      wkb,
		})
	}
	log.Info(g.logTag+"crown layer read", zap.String("shp", shp), zap.Int("features", len(crowns)), zap.Int("srid", srid))
	return
}

// speciesFieldIndex resolves the species id attribute. When the .cpg sidecar
// declares a legacy encoding the field name is looked up in that encoding
// too, the way old ArcGIS exports store it.
func (g *Toolbox) speciesFieldIndex(layer gdal.Layer, shp, speciesField string) (idx int, err error) {
	if speciesField == "" {
		speciesField = DEFAULT_SPECIES_FIELD
	}
	def := layer.Definition()
	if idx = def.FieldIndex(speciesField); idx >= 0 {
		return
	}
	if _, isUtf8 := utils.ShpEncoding(shp); !isUtf8 {
		if legacy, e := utils.Utf8StrToLatin1(speciesField); e == nil {
			if idx = def.FieldIndex(legacy); idx >= 0 {
				return
			}
		}
	}
	err = fmt.Errorf(ErrFieldMissingTemplate, speciesField, shp)
	return
}
