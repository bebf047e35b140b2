package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default must validate: %v", err)
	}
}

func TestLoadPartialOverlay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte(`{"type_ratio": 0.95}`), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.TypeRatio != 0.95 {
		t.Errorf("TypeRatio = %v, want 0.95", h.TypeRatio)
	}
	// Untouched fields keep defaults.
	if h.IdentifierMinRows != Default().IdentifierMinRows {
		t.Errorf("IdentifierMinRows = %d, want default", h.IdentifierMinRows)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte(`{"type_ratio": 1.5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("out-of-range ratio must fail validation")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestValidateBounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Heuristics)
	}{
		{"negative type ratio", func(h *Heuristics) { h.TypeRatio = -0.1 }},
		{"categorical ratio above one", func(h *Heuristics) { h.CategoricalUniqueRatio = 1.1 }},
		{"identifier ratio above one", func(h *Heuristics) { h.IdentifierUniqueRatio = 2 }},
		{"zero min distinct", func(h *Heuristics) { h.CategoricalMinDistinct = 0 }},
		{"negative stddev limit", func(h *Heuristics) { h.FieldStdDevLimit = -1 }},
	}
	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := Default()
			tt.mutate(&h)
			if err := h.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
