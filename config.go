package crownconv

const (
	SHP_DRIVER_NAME = "ESRI Shapefile"

	DEFAULT_SPECIES_FIELD = "species_id"

	DEFAULT_GENUS   = "Unspecified"
	DEFAULT_SPECIES = "sp."

	IMAGE_TYPE_RGB   = "rgb"
	IMAGE_TYPE_MULTI = "multispectral"

	DATASET_URL     = "https://github.com/smk0061/TREE-D"
	DATASET_DESC    = "TREE-D Contribution"
	DATASET_VERSION = "1.0"

	MIT_LICENSE_ID   = 1
	MIT_LICENSE_NAME = "MIT License"
	MIT_LICENSE_URL  = "https://opensource.org/licenses/MIT"

	// First ids handed out by the allocators. Image ids are zero-based in
	// first-seen order; annotation ids start at 1 in production order.
	FIRST_IMAGE_ID      = 0
	FIRST_ANNOTATION_ID = 1

	ErrColumnMissingTemplate = "required column [%s] missing from %s"
	ErrFieldMissingTemplate  = "required field [%s] missing from %s layer"
)

// Named spectral bands recognized in image-metadata columns, plus the
// generic band_1..band_19 fallback handled in bandNameOf.
var namedBands = map[string]struct{}{
	"blue":    {},
	"green":   {},
	"red":     {},
	"redEdge": {},
	"nir":     {},
}

// Band order within an RGB raster.
var rgbBandOrder = []string{"red", "green", "blue"}
