// Package font knows the standard 14 PDF fonts: which base font names a
// page may use without embedding a font program, and how wide their glyphs
// are.
//
//	if font.IsStandard("Helvetica") {
//	    w := font.StringWidth("Helvetica", "Page 1", 10)
//	}
package font
