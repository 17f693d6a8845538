// Package csv provides CSV file reading for tabular data.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hed1ad/isoforest/pkg/dataset"
)

// Reader reads data from CSV files.
type Reader struct {
	closer    io.Closer
	reader    *csv.Reader
	hasHeader bool
	headers   []string

	classColumn string
	dateColumns map[string]bool
	dateLayout  string

	schema  *dataset.Dataset
	pending []string
	skipped int

	mu  sync.Mutex
	err error
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithClassColumn marks the named column as the nominal class attribute.
// Empty cells and "?" are missing class values.
func WithClassColumn(name string) Option {
	return func(r *Reader) {
		r.classColumn = name
	}
}

// WithDateColumns marks the named columns as date attributes.
func WithDateColumns(names ...string) Option {
	return func(r *Reader) {
		for _, n := range names {
			r.dateColumns[n] = true
		}
	}
}

// WithDateLayout sets the time layout for date columns. Default is RFC 3339.
func WithDateLayout(layout string) Option {
	return func(r *Reader) {
		r.dateLayout = layout
	}
}

// WithSchema makes the reader use an existing schema, typically the header
// of a trained model, instead of inferring one from the column names.
func WithSchema(schema *dataset.Dataset) Option {
	return func(r *Reader) {
		r.schema = schema.Header()
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFrom(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file

	return r, nil
}

// NewReaderFrom creates a CSV reader over an arbitrary stream.
func NewReaderFrom(in io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{
		reader:      csv.NewReader(in),
		hasHeader:   true,
		dateColumns: make(map[string]bool),
		dateLayout:  time.RFC3339,
	}

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.headers = headers
		if err := r.initSchema(len(headers)); err != nil {
			return nil, err
		}
	} else if r.schema != nil {
		// Without a header the width is only known from the first row.
		record, err := r.reader.Read()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read first row: %w", err)
		}
		if err == nil {
			if err := r.initSchema(len(record)); err != nil {
				return nil, err
			}
			r.pending = record
		}
	}

	return r, nil
}

// initSchema builds the attribute list for a file with width columns.
func (r *Reader) initSchema(width int) error {
	if r.schema != nil {
		if r.schema.NumAttributes() != width {
			return fmt.Errorf("schema has %d attributes, file has %d columns", r.schema.NumAttributes(), width)
		}
		return nil
	}

	attrs := make([]dataset.Attribute, width)
	classIndex := -1
	for i := range attrs {
		name := "a" + strconv.Itoa(i)
		if i < len(r.headers) {
			name = strings.TrimSpace(r.headers[i])
		}
		attrs[i] = dataset.Attribute{Name: name, Kind: dataset.Numeric}
		switch {
		case r.classColumn != "" && name == r.classColumn:
			attrs[i].Kind = dataset.Nominal
			classIndex = i
		case r.dateColumns[name]:
			attrs[i].Kind = dataset.Date
		}
	}
	if r.classColumn != "" && classIndex < 0 {
		return fmt.Errorf("class column %q not found", r.classColumn)
	}

	r.schema = dataset.New(attrs, classIndex)
	return nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Schema returns the attribute layout of the rows this reader produces, or
// nil if it is not known before the first row of a headerless file.
func (r *Reader) Schema() *dataset.Dataset {
	if r.schema == nil {
		return nil
	}
	return r.schema.Header()
}

// Err returns the error that ended the last Stream, if it was not io.EOF.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Skipped returns the number of malformed rows skipped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Read returns all data as a dataset.
func (r *Reader) Read() (*dataset.Dataset, error) {
	var rows [][]float64

	for {
		row, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if r.schema == nil {
		return nil, errors.New("no data rows")
	}

	d := r.schema.Header()
	d.Rows = rows
	return d, nil
}

// Stream returns a channel of rows for real-time processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				row, err := r.next()
				if err != nil {
					if err != io.EOF {
						r.mu.Lock()
						r.err = err
						r.mu.Unlock()
					}
					return
				}

				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// next returns the next well-formed row, skipping malformed ones.
func (r *Reader) next() ([]float64, error) {
	for {
		var (
			record []string
			err    error
		)
		if r.pending != nil {
			record, r.pending = r.pending, nil
		} else {
			record, err = r.reader.Read()
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.skipped++
				continue
			}
			return nil, err
		}

		if r.schema == nil {
			if err := r.initSchema(len(record)); err != nil {
				return nil, err
			}
		}

		row, err := r.parseRow(record)
		if err != nil {
			r.skipped++
			continue // Skip malformed rows
		}
		return row, nil
	}
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// parseRow converts a CSV record to a row of the reader's schema.
func (r *Reader) parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}
	if len(record) != r.schema.NumAttributes() {
		return nil, fmt.Errorf("row has %d columns, want %d", len(record), r.schema.NumAttributes())
	}

	row := make([]float64, len(record))
	for i, val := range record {
		val = strings.TrimSpace(val)
		attr := &r.schema.Attributes[i]

		if r.schema.IsClass(i) {
			row[i] = classValue(attr, val)
			continue
		}

		switch attr.Kind {
		case dataset.Date:
			ts, err := time.Parse(r.dateLayout, val)
			if err != nil {
				return nil, err
			}
			row[i] = float64(ts.UnixMilli())
		default:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("column %q: non-finite value %q", attr.Name, val)
			}
			row[i] = f
		}
	}
	return row, nil
}

// classValue maps a class label to its index, registering unseen labels.
func classValue(attr *dataset.Attribute, val string) float64 {
	if val == "" || val == "?" {
		return dataset.Missing()
	}
	idx := attr.LabelIndex(val)
	if idx < 0 {
		attr.Labels = append(attr.Labels, val)
		idx = len(attr.Labels) - 1
	}
	return float64(idx)
}
