package crownconv

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/nrac-wvu/crownconv/log"
	"github.com/nrac-wvu/crownconv/utils"

	"go.uber.org/zap"
)

// Convert runs the whole pipeline: load the two lookup tables, prepare the
// candidate images, stream the crowns through the assembler and write the
// document. Nothing is written until every crown has been processed, so a
// fatal condition never leaves partial output behind.
func (g *Toolbox) Convert(opts Options) (sum Summary, err error) {
	if opts.OnUnmatched == "" {
		opts.OnUnmatched = PolicySkip
	}
	if opts.OnMissingRaster == "" {
		opts.OnMissingRaster = PolicySkip
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	start := now()
	log.Info(g.logTag+"conversion started", zap.String("shp", opts.Shapefile), zap.String("images", opts.ImageFolder))

	tax, err := LoadTaxonomy(opts.TaxonomyCSV, &sum)
	if err != nil {
		return
	}
	meta, err := LoadImageMetadata(opts.ImageMetadataCSV)
	if err != nil {
		return
	}
	cands, err := g.prepareCandidates(&opts, meta, &sum)
	if err != nil {
		return
	}
	crowns, layerSrid, err := g.LoadCrowns(opts.Shapefile, opts.SpeciesField)
	if err != nil {
		return
	}

	doc := &Document{
		Info: Info{
			Description: defaultStr(opts.Description, DATASET_DESC),
			URL:         defaultStr(opts.URL, DATASET_URL),
			Version:     DATASET_VERSION,
			Year:        start.Format("2006"),
			Contributor: opts.Contributor,
			DateCreated: start.Format("2006-01-02"),
		},
		Licenses:    []License{{ID: MIT_LICENSE_ID, Name: MIT_LICENSE_NAME, URL: MIT_LICENSE_URL}},
		Categories:  tax.Categories,
		Images:      []ImageRecord{},
		Annotations: []Annotation{},
	}
	asm := &assembler{
		g:         g,
		tax:       tax,
		cands:     cands,
		layerSrid: layerSrid,
		opts:      &opts,
		imgAlloc:  newIDAllocator(FIRST_IMAGE_ID),
		annAlloc:  newIDAllocator(FIRST_ANNOTATION_ID),
		doc:       doc,
		sum:       &sum,
	}
	for _, crown := range crowns {
		if err = asm.process(crown); err != nil {
			return
		}
	}

	sum.Images = len(doc.Images)
	sum.Categories = len(doc.Categories)
	sum.Annotations = len(doc.Annotations)
	if err = WriteDocument(opts.Output, doc); err != nil {
		return
	}
	for _, w := range sum.Warnings {
		log.Warn(g.logTag + "recoverable: " + w)
	}
	log.Info(g.logTag+"conversion finished",
		zap.Int("annotations", sum.Annotations),
		zap.Int("images", sum.Images),
		zap.Int("categories", sum.Categories),
		zap.Int("skipped", sum.Skipped),
		zap.Int("warnings", len(sum.Warnings)),
		zap.Duration("took", now().Sub(start)))
	return
}

// prepareCandidates pairs each metadata row with its raster on disk and
// builds the output image record up front; crowns only ever see images that
// passed validation. Rows without a raster follow the configured policy, and
// rasters without a metadata row are reported but never processed.
func (g *Toolbox) prepareCandidates(opts *Options, meta *ImageMetadata, sum *Summary) (cands []*candidate, err error) {
	paths, err := utils.FindRasters(opts.ImageFolder)
	if err != nil {
		err = fmt.Errorf("image folder %s: %w", opts.ImageFolder, err)
		return
	}
	byName := make(map[string]string, len(paths))
	for _, p := range paths {
		byName[filepath.Base(p)] = p
	}
	for _, p := range paths {
		if _, described := meta.Lookup(filepath.Base(p)); !described {
			sum.warnf("raster %s has no metadata row, excluded", filepath.Base(p))
		}
	}
	for i := range meta.Descriptors {
		desc := &meta.Descriptors[i]
		path, present := byName[desc.FileName]
		if !present {
			if opts.OnMissingRaster == PolicyFail {
				err = fmt.Errorf("%w: %s", ErrMissingRaster, desc.FileName)
				return
			}
			sum.warnf("metadata row %s has no raster in %s, excluded", desc.FileName, opts.ImageFolder)
			continue
		}
		ref, e := g.OpenRaster(path)
		if e != nil {
			err = fmt.Errorf("raster %s: %w", path, e)
			return
		}
		rec, e := buildImageRecord(desc, ref, sum)
		if e != nil {
			sum.warnf("image excluded: %v", e)
			continue
		}
		cands = append(cands, &candidate{ref: ref, rec: rec})
	}
	if len(cands) == 0 {
		err = fmt.Errorf("%w: %s", ErrNoImages, opts.ImageFolder)
	}
	return
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
