// Package dataset provides the tabular data model consumed by the detectors.
//
// A Dataset is an ordered sequence of fixed-length numeric records together
// with per-column attribute metadata. Nominal values are stored as label
// indices, dates as Unix milliseconds and missing values as NaN.
package dataset

import (
	"math"
	"math/rand"
	"strconv"
)

// Kind is the type of an attribute.
type Kind int

const (
	// Numeric attributes hold real values.
	Numeric Kind = iota
	// Date attributes hold Unix milliseconds.
	Date
	// Nominal attributes hold an index into Labels.
	Nominal
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Date:
		return "date"
	case Nominal:
		return "nominal"
	default:
		return "unknown"
	}
}

// Attribute describes one column.
type Attribute struct {
	Name   string
	Kind   Kind
	Labels []string
}

// LabelIndex returns the index of label, or -1 if it is unknown.
func (a *Attribute) LabelIndex(label string) int {
	for i, l := range a.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Dataset is an ordered row/column numeric matrix with attribute metadata.
type Dataset struct {
	Attributes []Attribute
	// ClassIndex is the column of the class attribute, or -1 if there is none.
	// The class is carried for evaluation only and never used for splitting.
	ClassIndex int
	Rows       [][]float64
}

// New returns an empty dataset with the given schema.
func New(attrs []Attribute, classIndex int) *Dataset {
	return &Dataset{
		Attributes: attrs,
		ClassIndex: classIndex,
	}
}

// FromMatrix wraps rows in an all-numeric dataset without a class attribute.
// Attribute names are a0, a1, ...
func FromMatrix(rows [][]float64) *Dataset {
	var width int
	if len(rows) > 0 {
		width = len(rows[0])
	}
	attrs := make([]Attribute, width)
	for i := range attrs {
		attrs[i] = Attribute{Name: "a" + strconv.Itoa(i), Kind: Numeric}
	}
	return &Dataset{Attributes: attrs, ClassIndex: -1, Rows: rows}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// NumAttributes returns the number of columns, class included.
func (d *Dataset) NumAttributes() int { return len(d.Attributes) }

// Add appends a row.
func (d *Dataset) Add(row []float64) { d.Rows = append(d.Rows, row) }

// IsClass reports whether column j is the class attribute.
func (d *Dataset) IsClass(j int) bool { return j == d.ClassIndex }

// Header returns a copy of the schema without any rows.
func (d *Dataset) Header() *Dataset {
	attrs := make([]Attribute, len(d.Attributes))
	for i, a := range d.Attributes {
		attrs[i] = a
		attrs[i].Labels = append([]string(nil), a.Labels...)
	}
	return &Dataset{Attributes: attrs, ClassIndex: d.ClassIndex}
}

// Copy returns a dataset with the same schema and a new row slice.
// Row values are shared, so reordering the copy leaves d untouched.
func (d *Dataset) Copy() *Dataset {
	c := d.Header()
	c.Rows = make([][]float64, len(d.Rows))
	copy(c.Rows, d.Rows)
	return c
}

// Shuffle reorders the rows in place using r.
func (d *Dataset) Shuffle(r *rand.Rand) {
	r.Shuffle(len(d.Rows), func(i, j int) {
		d.Rows[i], d.Rows[j] = d.Rows[j], d.Rows[i]
	})
}

// Subset returns the first n rows as a dataset sharing d's schema.
func (d *Dataset) Subset(n int) *Dataset {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{
		Attributes: d.Attributes,
		ClassIndex: d.ClassIndex,
		Rows:       d.Rows[:n:n],
	}
}

// Missing is the stored value of a missing cell.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v encodes a missing cell.
func IsMissing(v float64) bool { return math.IsNaN(v) }

