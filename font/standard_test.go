package font

import (
	"math"
	"testing"
)

func TestIsStandard(t *testing.T) {
	tests := []struct {
		base string
		want bool
	}{
		{"Helvetica", true},
		{"Times-BoldItalic", true},
		{"ZapfDingbats", true},
		{"Arial", false},
		{"helvetica", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsStandard(tt.base); got != tt.want {
			t.Errorf("IsStandard(%q) = %v, want %v", tt.base, got, tt.want)
		}
	}
}

func TestStringWidth(t *testing.T) {
	tests := []struct {
		base string
		s    string
		size float64
		want float64
	}{
		{"Courier", "abc", 10, 18},
		{"Helvetica", " ", 1000, 278},
		{"Helvetica", "", 12, 0},
		{"Times-Roman", " ", 10, 2.5},
		// Unknown fonts and glyphs fall back to 500.
		{"Arial", "x", 10, 5},
		{"Helvetica", "€", 10, 5},
	}
	for _, tt := range tests {
		got := StringWidth(tt.base, tt.s, tt.size)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("StringWidth(%q, %q, %v) = %v, want %v", tt.base, tt.s, tt.size, got, tt.want)
		}
	}
}

func TestObliqueSharesWidths(t *testing.T) {
	for _, r := range "Page 12" {
		if Width("Helvetica-Oblique", r) != Width("Helvetica", r) {
			t.Errorf("width of %q differs between Helvetica and Helvetica-Oblique", r)
		}
	}
}
