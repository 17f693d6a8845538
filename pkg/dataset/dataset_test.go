package dataset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMatrix(t *testing.T) {
	d := FromMatrix([][]float64{{1, 2}, {3, 4}})

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 2, d.NumAttributes())
	assert.Equal(t, -1, d.ClassIndex)
	assert.Equal(t, "a1", d.Attributes[1].Name)
	assert.Equal(t, Numeric, d.Attributes[1].Kind)
}

func TestCopyAndShuffle(t *testing.T) {
	rows := make([][]float64, 20)
	for i := range rows {
		rows[i] = []float64{float64(i)}
	}
	d := FromMatrix(rows)

	a := d.Copy()
	b := d.Copy()
	a.Shuffle(rand.New(rand.NewSource(7)))
	b.Shuffle(rand.New(rand.NewSource(7)))

	assert.Equal(t, a.Rows, b.Rows, "same seed must give same order")
	assert.NotEqual(t, d.Rows, a.Rows, "shuffle must reorder the copy")
	assert.Equal(t, 0.0, d.Rows[0][0], "original must be untouched")
}

func TestSubset(t *testing.T) {
	d := FromMatrix([][]float64{{1}, {2}, {3}})

	assert.Equal(t, 2, d.Subset(2).Len())
	assert.Equal(t, 3, d.Subset(10).Len())

	// Appending to a subset must not clobber the parent.
	s := d.Subset(1)
	s.Add([]float64{99})
	assert.Equal(t, 2.0, d.Rows[1][0])
}

func TestHeader(t *testing.T) {
	d := New([]Attribute{
		{Name: "x", Kind: Numeric},
		{Name: "label", Kind: Nominal, Labels: []string{"anomaly", "normal"}},
	}, 1)
	d.Add([]float64{1, 0})

	h := d.Header()
	require.Equal(t, 0, h.Len())
	h.Attributes[1].Labels[0] = "changed"

	assert.Equal(t, "anomaly", d.Attributes[1].Labels[0])
	assert.Equal(t, 1, d.Attributes[1].LabelIndex("normal"))
	assert.Equal(t, -1, d.Attributes[1].LabelIndex("other"))
}

func TestCheckCapabilities(t *testing.T) {
	classAttr := Attribute{Name: "class", Kind: Nominal, Labels: []string{"yes", "no"}}

	tests := []struct {
		name    string
		data    *Dataset
		wantErr bool
	}{
		{
			name:    "nil dataset",
			data:    nil,
			wantErr: true,
		},
		{
			name:    "no rows",
			data:    FromMatrix(nil),
			wantErr: true,
		},
		{
			name:    "numeric only",
			data:    FromMatrix([][]float64{{1, 2}, {3, 4}}),
			wantErr: false,
		},
		{
			name: "date and binary class with missing class value",
			data: &Dataset{
				Attributes: []Attribute{{Name: "t", Kind: Date}, classAttr},
				ClassIndex: 1,
				Rows:       [][]float64{{1000, 0}, {2000, math.NaN()}},
			},
			wantErr: false,
		},
		{
			name: "class only",
			data: &Dataset{
				Attributes: []Attribute{classAttr},
				ClassIndex: 0,
				Rows:       [][]float64{{0}},
			},
			wantErr: true,
		},
		{
			name: "nominal feature",
			data: &Dataset{
				Attributes: []Attribute{{Name: "x", Kind: Numeric}, {Name: "color", Kind: Nominal, Labels: []string{"r"}}},
				ClassIndex: -1,
				Rows:       [][]float64{{1, 0}},
			},
			wantErr: true,
		},
		{
			name: "numeric class",
			data: &Dataset{
				Attributes: []Attribute{{Name: "x", Kind: Numeric}, {Name: "y", Kind: Numeric}},
				ClassIndex: 1,
				Rows:       [][]float64{{1, 0}},
			},
			wantErr: true,
		},
		{
			name: "three class labels",
			data: &Dataset{
				Attributes: []Attribute{{Name: "x", Kind: Numeric}, {Name: "c", Kind: Nominal, Labels: []string{"a", "b", "c"}}},
				ClassIndex: 1,
				Rows:       [][]float64{{1, 0}},
			},
			wantErr: true,
		},
		{
			name:    "ragged rows",
			data:    FromMatrix([][]float64{{1, 2}, {3}}),
			wantErr: true,
		},
		{
			name:    "missing feature value",
			data:    FromMatrix([][]float64{{1, math.NaN()}}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCapabilities(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompatible)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	d := &Dataset{
		Attributes: []Attribute{
			{Name: "x", Kind: Numeric},
			{Name: "c", Kind: Nominal, Labels: []string{"a", "b"}},
			{Name: "k", Kind: Numeric},
		},
		ClassIndex: 1,
		Rows: [][]float64{
			{1, 0, 5},
			{2, 1, 5},
			{3, 0, 5},
		},
	}

	stats := Summarize(d)
	require.Len(t, stats, 2)

	assert.Equal(t, "x", stats[0].Name)
	assert.Equal(t, 1.0, stats[0].Min)
	assert.Equal(t, 3.0, stats[0].Max)
	assert.InDelta(t, 2.0, stats[0].Mean, 1e-12)
	assert.InDelta(t, 1.0, stats[0].StdDev, 1e-12)
	assert.False(t, stats[0].Constant())

	assert.True(t, stats[1].Constant())
	assert.Equal(t, 0.0, stats[1].StdDev)
}

func TestCentroid(t *testing.T) {
	d := &Dataset{
		Attributes: []Attribute{
			{Name: "x", Kind: Numeric},
			{Name: "c", Kind: Nominal, Labels: []string{"a", "b"}},
		},
		ClassIndex: 1,
		Rows:       [][]float64{{1, 0}, {3, 1}},
	}

	c := Centroid(d)
	require.Len(t, c, 2)
	assert.Equal(t, 2.0, c[0])
	assert.True(t, IsMissing(c[1]))
}
