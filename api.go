package crownconv

import (
	"fmt"
	"time"
)

// GdalGeo is a geometry serialized as WKB.
type GdalGeo = []byte

// Category is one taxonomic unit from the taxonomy table.
type Category struct {
	ID      int    `json:"id"`
	Family  string `json:"family"`
	Genus   string `json:"genus"`
	Species string `json:"species"`
}

// BandMeta is the wavelength/bandwidth pair read from the metadata table for
// one spectral band. Missing numbers stay nil so the writer can omit them.
type BandMeta struct {
	Wavelength *float64
	Bandwidth  *float64
}

// ImageDescriptor is one row of the image-metadata table.
type ImageDescriptor struct {
	FileName     string
	Sensor       string
	ImageType    string // rgb (default) or multispectral
	DateCaptured string
	TimeCaptured string
	JulianDay    string
	Altitude     float64
	State        string
	County       string
	LocationDesc string
	Bands        map[string]BandMeta
}

// Crown is one feature of the crown-polygon layer.
type Crown struct {
	Index     int
	SpeciesID int
	Geom      GdalGeo
}

// SpectralBand describes one band of an emitted image record.
type SpectralBand struct {
	Wavelength *float64 `json:"wavelength,omitempty"`
	Bandwidth  *float64 `json:"bandwidth,omitempty"`
	Order      int      `json:"order"`
}

// ImageRecord is one entry of the output images list.
type ImageRecord struct {
	ID            int                     `json:"id"`
	FileName      string                  `json:"file_name"`
	Width         int                     `json:"width"`
	Height        int                     `json:"height"`
	DateCaptured  string                  `json:"date_captured"`
	JulianDay     string                  `json:"julian_day"`
	TimeCaptured  string                  `json:"time_captured"`
	License       int                     `json:"license"`
	Sensor        string                  `json:"sensor"`
	Altitude      float64                 `json:"altitude"`
	Resolution    float64                 `json:"resolution"`
	State         string                  `json:"state"`
	County        string                  `json:"county"`
	LocationDesc  string                  `json:"location_description"`
	SpectralBands map[string]SpectralBand `json:"spectral_bands"`
}

// Annotation is one crown-to-image binding in pixel space.
type Annotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	BBox         []float64   `json:"bbox"`
	IsCrowd      int         `json:"iscrowd"`
}

// Info is the provenance block of the output document.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        string `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Document is the root of the output JSON.
type Document struct {
	Info        Info          `json:"info"`
	Licenses    []License     `json:"licenses"`
	Categories  []Category    `json:"categories"`
	Images      []ImageRecord `json:"images"`
	Annotations []Annotation  `json:"annotations"`
}

// Policy selects between recoverable and fatal handling of a condition.
type Policy string

const (
	PolicySkip Policy = "skip"
	PolicyFail Policy = "fail"
)

func (p Policy) Valid() bool {
	return p == PolicySkip || p == PolicyFail
}

// Options configures one conversion run.
type Options struct {
	Shapefile        string
	ImageFolder      string
	Output           string
	TaxonomyCSV      string
	ImageMetadataCSV string

	Contributor string
	Description string
	URL         string

	SpeciesField    string // defaults to species_id
	OnUnmatched     Policy // crown intersecting no image
	OnMissingRaster Policy // metadata row whose raster is absent

	// Now overrides the timestamp source; nil means time.Now (kept
	// injectable so runs can be reproduced byte for byte).
	Now func() time.Time
}

// Summary reports the outcome of a run; warnings are accumulated during the
// run and logged once at completion.
type Summary struct {
	Images      int
	Categories  int
	Annotations int
	Skipped     int
	Warnings    []string
}

func (s *Summary) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// idAllocator hands out sequential ids; passed explicitly through the
// pipeline so there is no process-wide counter state.
type idAllocator struct {
	next int
}

func newIDAllocator(first int) *idAllocator {
	return &idAllocator{next: first}
}

func (a *idAllocator) Next() (id int) {
	id = a.next
	a.next++
	return
}
