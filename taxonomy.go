package crownconv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nrac-wvu/crownconv/log"
	"github.com/nrac-wvu/crownconv/utils"

	"go.uber.org/zap"
)

// Taxonomy maps species ids to their resolved categories, preserving table
// order for the output document.
type Taxonomy struct {
	Categories []Category
	byID       map[int]Category
}

// Resolve returns the category for a species id.
func (t *Taxonomy) Resolve(speciesID int) (Category, bool) {
	c, ok := t.byID[speciesID]
	return c, ok
}

// LoadTaxonomy builds the id-to-category mapping from the taxonomy table.
// Any malformed row fails the whole load; partial taxonomies corrupt the
// dataset's semantics.
func LoadTaxonomy(path string, sum *Summary) (tax *Taxonomy, err error) {
	header, rows, err := utils.ReadCSV(path)
	if err != nil {
		err = fmt.Errorf("taxonomy table %s: %w", path, err)
		return
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"id", "family"} {
		if _, ok := cols[required]; !ok {
			err = fmt.Errorf(ErrColumnMissingTemplate, required, path)
			return
		}
	}
	if _, ok := cols["genus"]; !ok {
		sum.warnf("taxonomy table has no genus column, defaulting to %q", DEFAULT_GENUS)
	}
	if _, ok := cols["species"]; !ok {
		sum.warnf("taxonomy table has no species column, defaulting to %q", DEFAULT_SPECIES)
	}
	tax = &Taxonomy{
		Categories: make([]Category, 0, len(rows)),
		byID:       make(map[int]Category, len(rows)),
	}
	field := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	for n, row := range rows {
		id, e := strconv.Atoi(field(row, "id"))
		if e != nil {
			err = fmt.Errorf("taxonomy row %d: bad id %q", n+1, field(row, "id"))
			return
		}
		if _, dup := tax.byID[id]; dup {
			err = fmt.Errorf("%w: %d", ErrDuplicateTaxonID, id)
			return
		}
		cat := Category{
			ID:      id,
			Family:  field(row, "family"),
			Genus:   field(row, "genus"),
			Species: field(row, "species"),
		}
		if cat.Family == "" {
			err = fmt.Errorf("taxonomy row %d (id %d): family is required", n+1, id)
			return
		}
		if cat.Genus == "" || strings.EqualFold(cat.Genus, DEFAULT_GENUS) {
			cat.Genus = DEFAULT_GENUS
		}
		if cat.Species == "" {
			cat.Species = DEFAULT_SPECIES
		}
		if cat.Genus == DEFAULT_GENUS && cat.Species != DEFAULT_SPECIES {
			sum.warnf("taxonomy id %d: species %q reset to %q under unspecified genus", id, cat.Species, DEFAULT_SPECIES)
			cat.Species = DEFAULT_SPECIES
		}
		tax.Categories = append(tax.Categories, cat)
		tax.byID[id] = cat
	}
	log.Info("taxonomy loaded", zap.String("path", path), zap.Int("categories", len(tax.Categories)))
	return
}
