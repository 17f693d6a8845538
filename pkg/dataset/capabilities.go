package dataset

import (
	"errors"
	"fmt"
)

// ErrIncompatible is returned by CheckCapabilities when a dataset cannot be
// used for training.
var ErrIncompatible = errors.New("incompatible dataset")

// CheckCapabilities verifies that d can be handed to an isolation forest:
// at least one row, rectangular rows, only numeric or date non-class
// attributes without missing values, at least one such attribute, and an
// optional binary nominal class attribute whose values may be missing.
func CheckCapabilities(d *Dataset) error {
	if d == nil || len(d.Rows) == 0 {
		return fmt.Errorf("%w: no instances", ErrIncompatible)
	}
	if d.ClassIndex >= len(d.Attributes) || d.ClassIndex < -1 {
		return fmt.Errorf("%w: class index %d out of range", ErrIncompatible, d.ClassIndex)
	}

	usable := 0
	for j, a := range d.Attributes {
		if d.IsClass(j) {
			if a.Kind != Nominal {
				return fmt.Errorf("%w: class attribute %q is %s, want nominal", ErrIncompatible, a.Name, a.Kind)
			}
			if len(a.Labels) > 2 {
				return fmt.Errorf("%w: class attribute %q has %d values, want at most 2",
					ErrIncompatible, a.Name, len(a.Labels))
			}
			continue
		}
		switch a.Kind {
		case Numeric, Date:
			usable++
		default:
			return fmt.Errorf("%w: attribute %q is %s", ErrIncompatible, a.Name, a.Kind)
		}
	}
	if usable == 0 {
		return fmt.Errorf("%w: no numeric or date attributes", ErrIncompatible)
	}

	width := len(d.Attributes)
	for i, row := range d.Rows {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrIncompatible, i, len(row), width)
		}
		for j, v := range row {
			if !d.IsClass(j) && IsMissing(v) {
				return fmt.Errorf("%w: row %d: missing value for attribute %q",
					ErrIncompatible, i, d.Attributes[j].Name)
			}
		}
	}

	return nil
}
