package crownconv

import (
	"math"
	"strconv"
	"strings"
)

// Affine is a six-parameter geotransform in GDAL order:
// x = a[0] + col*a[1] + row*a[2]
// y = a[3] + col*a[4] + row*a[5]
type Affine [6]float64

// Apply maps a pixel coordinate (col,row) to a geographic coordinate.
func (a Affine) Apply(col, row float64) (x, y float64) {
	x = a[0] + col*a[1] + row*a[2]
	y = a[3] + col*a[4] + row*a[5]
	return
}

// Invert returns the transform mapping geographic coordinates back to pixel
// coordinates, in the same six-parameter layout.
func (a Affine) Invert() (inv Affine, err error) {
	det := a[1]*a[5] - a[2]*a[4]
	if det == 0 {
		err = ErrSingularTransform
		return
	}
	inv[1] = a[5] / det
	inv[2] = -a[2] / det
	inv[4] = -a[4] / det
	inv[5] = a[1] / det
	inv[0] = -(inv[1]*a[0] + inv[2]*a[3])
	inv[3] = -(inv[4]*a[0] + inv[5]*a[3])
	return
}

// PixelSize is the ground size of one pixel along the x axis.
func (a Affine) PixelSize() float64 {
	return a[1]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// clampRing clips pixel coordinates (flat x1,y1,x2,y2,... layout) to the
// image grid [0,w] x [0,h].
func clampRing(ring []float64, w, h float64) {
	for i := 0; i+1 < len(ring); i += 2 {
		ring[i] = clamp(ring[i], 0, w)
		ring[i+1] = clamp(ring[i+1], 0, h)
	}
}

// shoelaceArea computes the planar area of a simple closed ring in flat
// x1,y1,x2,y2,... layout. The result is unsigned.
func shoelaceArea(ring []float64) float64 {
	n := len(ring) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[2*i]*ring[2*j+1] - ring[2*j]*ring[2*i+1]
	}
	return math.Abs(sum) / 2
}

// ringsBBox returns the [x,y,w,h] bounding box over one or more flat rings.
func ringsBBox(rings [][]float64) []float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, ring := range rings {
		for i := 0; i+1 < len(ring); i += 2 {
			minX = math.Min(minX, ring[i])
			maxX = math.Max(maxX, ring[i])
			minY = math.Min(minY, ring[i+1])
			maxY = math.Max(maxY, ring[i+1])
		}
	}
	if math.IsInf(minX, 1) {
		return []float64{0, 0, 0, 0}
	}
	return []float64{minX, minY, maxX - minX, maxY - minY}
}

// cornersToWkt builds a closed polygon WKT from four corner points. The
// coordinates keep their full float64 precision; degree-based CRSs with
// sub-meter pixels lose whole pixels to fixed six-decimal formatting.
func cornersToWkt(pts [4][2]float64) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i := 0; i <= 4; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		p := pts[i%4]
		b.WriteString(strconv.FormatFloat(p[0], 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p[1], 'f', -1, 64))
	}
	b.WriteString("))")
	return b.String()
}
