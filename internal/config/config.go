// Package config holds the tunable heuristic thresholds used by the
// inference pipeline. Every threshold that would otherwise be a magic number
// inside resolver, infer, or classify lives here under one name, so boundary
// behavior can be probed precisely in tests and adjusted without touching
// pipeline logic.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Heuristics is the full set of inference thresholds. The zero value is not
// usable; start from Default and override selectively.
type Heuristics struct {
	// TypeRatio is the minimum fraction of cells (over the full column
	// length, nulls counted against) that must parse for a column to commit
	// to numeric, timestamp, or boolean. Strictly greater-than.
	TypeRatio float64 `json:"type_ratio"`

	// CategoricalUniqueRatio is the exclusive upper bound on
	// distinct/row-count below which a non-numeric column becomes
	// categorical.
	CategoricalUniqueRatio float64 `json:"categorical_unique_ratio"`

	// CategoricalMinDistinct is the minimum number of distinct values for a
	// categorical commitment.
	CategoricalMinDistinct int `json:"categorical_min_distinct"`

	// IdentifierUniqueRatio is the exclusive lower bound on
	// distinct/row-count above which a column is classified Identifier.
	IdentifierUniqueRatio float64 `json:"identifier_unique_ratio"`

	// IdentifierMinRows is the exclusive row-count floor below which the
	// identifier heuristic is not meaningful.
	IdentifierMinRows int `json:"identifier_min_rows"`

	// WideNumericShare: numeric columns above this share of all columns
	// label the table wide.
	WideNumericShare float64 `json:"wide_numeric_share"`

	// LongNonNumericShare: non-numeric columns above this share, combined
	// with LongMaxNumericCols, label the table long.
	LongNonNumericShare float64 `json:"long_non_numeric_share"`

	// LongMaxNumericCols is the inclusive numeric-column ceiling for the
	// long-format signals.
	LongMaxNumericCols int `json:"long_max_numeric_cols"`

	// FieldStdDevLimit is the maximum sample standard deviation of per-row
	// non-null field counts an (encoding, delimiter) trial may show before
	// it is rejected as inconsistent.
	FieldStdDevLimit float64 `json:"field_stddev_limit"`
}

// Default returns the production thresholds.
func Default() Heuristics {
	return Heuristics{
		TypeRatio:              0.8,
		CategoricalUniqueRatio: 0.5,
		CategoricalMinDistinct: 2,
		IdentifierUniqueRatio:  0.9,
		IdentifierMinRows:      10,
		WideNumericShare:       0.7,
		LongNonNumericShare:    0.5,
		LongMaxNumericCols:     2,
		FieldStdDevLimit:       1,
	}
}

// Load reads a JSON heuristics file and overlays it on the defaults, so a
// partial file only overrides the fields it names.
func Load(path string) (Heuristics, error) {
	h := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("read heuristics: %w", err)
	}
	if err := json.Unmarshal(b, &h); err != nil {
		return h, fmt.Errorf("parse heuristics %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return h, fmt.Errorf("heuristics %s: %w", path, err)
	}
	return h, nil
}

// Validate rejects settings that would make the ladder meaningless.
func (h Heuristics) Validate() error {
	if h.TypeRatio < 0 || h.TypeRatio > 1 {
		return fmt.Errorf("type_ratio %v out of [0,1]", h.TypeRatio)
	}
	if h.CategoricalUniqueRatio < 0 || h.CategoricalUniqueRatio > 1 {
		return fmt.Errorf("categorical_unique_ratio %v out of [0,1]", h.CategoricalUniqueRatio)
	}
	if h.IdentifierUniqueRatio < 0 || h.IdentifierUniqueRatio > 1 {
		return fmt.Errorf("identifier_unique_ratio %v out of [0,1]", h.IdentifierUniqueRatio)
	}
	if h.CategoricalMinDistinct < 1 {
		return fmt.Errorf("categorical_min_distinct %d must be >= 1", h.CategoricalMinDistinct)
	}
	if h.FieldStdDevLimit < 0 {
		return fmt.Errorf("field_stddev_limit %v must be >= 0", h.FieldStdDevLimit)
	}
	return nil
}
