package crownconv

import "errors"

var (
	ErrGdalDriverOpen    = errors.New("gdal driver open err")
	ErrVoidSrid          = errors.New("void srid in spatial ref")
	ErrInvalidWKT        = errors.New("invalid WKT")
	ErrInvalidRaster     = errors.New("raster open err")
	ErrNoGeoref          = errors.New("raster has no georeferencing")
	ErrSingularTransform = errors.New("geotransform is not invertible")
	ErrDuplicateTaxonID  = errors.New("duplicate id in taxonomy table")
	ErrDuplicateImage    = errors.New("duplicate file_name in image metadata table")
	ErrUnknownCategory   = errors.New("species_id not present in taxonomy")
	ErrNoImages          = errors.New("no usable images in folder")
	ErrUnmatchedCrown    = errors.New("crown polygon intersects no image")
	ErrMissingRaster     = errors.New("image metadata row without raster file")
)
