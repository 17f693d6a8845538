package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AttributeStats holds descriptive statistics for one column.
type AttributeStats struct {
	Name   string
	Kind   Kind
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Constant reports whether the column never varies. Constant columns are
// never chosen as split attributes.
func (s AttributeStats) Constant() bool { return s.Min == s.Max }

// Column returns the values of column j, skipping missing cells.
func (d *Dataset) Column(j int) []float64 {
	col := make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		if !IsMissing(row[j]) {
			col = append(col, row[j])
		}
	}
	return col
}

// Summarize returns statistics for every non-class attribute of d, in
// column order. Columns with no values are reported as all zero.
func Summarize(d *Dataset) []AttributeStats {
	stats := make([]AttributeStats, 0, len(d.Attributes))
	for j, a := range d.Attributes {
		if d.IsClass(j) {
			continue
		}
		s := AttributeStats{Name: a.Name, Kind: a.Kind}
		if col := d.Column(j); len(col) > 0 {
			s.Min = floats.Min(col)
			s.Max = floats.Max(col)
			s.Mean, s.StdDev = stat.MeanStdDev(col, nil)
			if len(col) == 1 {
				s.StdDev = 0
			}
		}
		stats = append(stats, s)
	}
	return stats
}

// Centroid returns the per-attribute mean record of d. The class slot, if
// any, is left missing.
func Centroid(d *Dataset) []float64 {
	c := make([]float64, len(d.Attributes))
	for j := range d.Attributes {
		if d.IsClass(j) {
			c[j] = Missing()
			continue
		}
		if col := d.Column(j); len(col) > 0 {
			c[j] = stat.Mean(col, nil)
		}
	}
	return c
}
