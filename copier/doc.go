// Package copier assembles a new PDF out of pages imported from existing
// documents, optionally stamping content over each page.
//
// The pipeline for one page has four steps, mirroring a page-by-page
// copy/merge tool:
//
//	s := copier.NewSession(w)
//	p, err := s.ImportPage(src, 1)           // registers a page reference
//	stamp, err := s.CreatePageStamp(p)
//	stamp.OverContent().BeginText().SetFontAndSize("Helvetica", 10).
//	    SetTextMatrix(1, 0, 0, 1, 50, 50).ShowText("Page 1").EndText()
//	err = stamp.AlterContents()              // commits the overlay
//	err = s.AddPage(p)                       // finalizes the page
//	err = s.Close()                          // writes the document to w
//
// Two counters describe the session and can be read at any time through
// State: the number of registered page references and the number of
// finalized pages. Only ImportPage and AddPage change them.
//
// Imports are smart: an object reachable from several imported pages of
// the same source, such as a shared font, is copied once.
package copier
