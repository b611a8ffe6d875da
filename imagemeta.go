package crownconv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nrac-wvu/crownconv/log"
	"github.com/nrac-wvu/crownconv/utils"

	"go.uber.org/zap"
)

// ImageMetadata maps raster file names to their descriptors, preserving
// table order so image processing stays deterministic.
type ImageMetadata struct {
	Descriptors []ImageDescriptor
	byName      map[string]int
}

func (m *ImageMetadata) Lookup(fileName string) (*ImageDescriptor, bool) {
	i, ok := m.byName[fileName]
	if !ok {
		return nil, false
	}
	return &m.Descriptors[i], true
}

// bandNameOf splits a band metadata column into its band name and attribute.
// Recognized bands are the named spectral set plus band_1..band_19; anything
// else is not a band column.
func bandNameOf(col string) (band, attr string, ok bool) {
	switch {
	case strings.HasSuffix(col, "_wavelength"):
		band, attr = strings.TrimSuffix(col, "_wavelength"), "wavelength"
	case strings.HasSuffix(col, "_bandwidth"):
		band, attr = strings.TrimSuffix(col, "_bandwidth"), "bandwidth"
	default:
		return "", "", false
	}
	if _, named := namedBands[band]; named {
		return band, attr, true
	}
	if n, found := strings.CutPrefix(band, "band_"); found {
		if i, e := strconv.Atoi(n); e == nil && i >= 1 && i < 20 {
			return band, attr, true
		}
	}
	return "", "", false
}

// LoadImageMetadata builds the file-name-to-descriptor mapping from the image
// metadata table. Structural problems (missing required column, duplicate
// file_name, malformed numbers in recognized columns) fail the load;
// unrecognized columns are ignored for forward compatibility.
func LoadImageMetadata(path string) (meta *ImageMetadata, err error) {
	header, rows, err := utils.ReadCSV(path)
	if err != nil {
		err = fmt.Errorf("image metadata table %s: %w", path, err)
		return
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"file_name", "sensor"} {
		if _, ok := cols[required]; !ok {
			err = fmt.Errorf(ErrColumnMissingTemplate, required, path)
			return
		}
	}
	meta = &ImageMetadata{
		Descriptors: make([]ImageDescriptor, 0, len(rows)),
		byName:      make(map[string]int, len(rows)),
	}
	for n, row := range rows {
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		d := ImageDescriptor{
			FileName:     field("file_name"),
			Sensor:       field("sensor"),
			ImageType:    strings.ToLower(field("image_type")),
			DateCaptured: field("date_captured"),
			TimeCaptured: field("time_captured"),
			JulianDay:    field("julian_day"),
			State:        field("state"),
			County:       field("county"),
			LocationDesc: field("location_description"),
			Bands:        map[string]BandMeta{},
		}
		if d.FileName == "" {
			err = fmt.Errorf("image metadata row %d: file_name is required", n+1)
			return
		}
		if d.Sensor == "" {
			err = fmt.Errorf("image metadata row %d (%s): sensor is required", n+1, d.FileName)
			return
		}
		if d.ImageType == "" {
			d.ImageType = IMAGE_TYPE_RGB
		}
		if alt := field("altitude"); alt != "" {
			if d.Altitude, err = strconv.ParseFloat(alt, 64); err != nil {
				err = fmt.Errorf("image metadata row %d (%s): bad altitude %q", n+1, d.FileName, alt)
				return
			}
		}
		for colName, i := range cols {
			band, attr, isBand := bandNameOf(colName)
			if !isBand || i >= len(row) {
				continue
			}
			raw := strings.TrimSpace(row[i])
			if raw == "" {
				continue
			}
			v, e := strconv.ParseFloat(raw, 64)
			if e != nil {
				err = fmt.Errorf("image metadata row %d (%s): bad %s %q", n+1, d.FileName, colName, raw)
				return
			}
			bm := d.Bands[band]
			if attr == "wavelength" {
				bm.Wavelength = &v
			} else {
				bm.Bandwidth = &v
			}
			d.Bands[band] = bm
		}
		if _, dup := meta.byName[d.FileName]; dup {
			err = fmt.Errorf("%w: %s", ErrDuplicateImage, d.FileName)
			return
		}
		meta.Descriptors = append(meta.Descriptors, d)
		meta.byName[d.FileName] = len(meta.Descriptors) - 1
	}
	log.Info("image metadata loaded", zap.String("path", path), zap.Int("images", len(meta.Descriptors)))
	return
}
