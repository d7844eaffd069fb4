package pdftest

import "fmt"

// Flat numbering used by FlatDocument.
const (
	CatalogNum = 1
	PagesNum   = 2
	FontNum    = 3
	firstPage  = 10
)

// PageNum returns the object number FlatDocument gives page i (1-based).
func PageNum(i int) int { return firstPage + 2*(i-1) }

// ContentNum returns the object number of page i's content stream.
func ContentNum(i int) int { return PageNum(i) + 1 }

// FlatDocument returns a builder for an n-page document whose pages hang
// directly off the root /Pages node. Resources and MediaBox live on the
// root node and are inherited by every page; each page draws "Hello i".
func FlatDocument(n int) *Builder {
	kids := ""
	for i := 1; i <= n; i++ {
		kids += fmt.Sprintf(" %d 0 R", PageNum(i))
	}

	b := New().Root(CatalogNum).
		Object(CatalogNum, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", PagesNum)).
		Object(PagesNum, fmt.Sprintf("<< /Type /Pages /Kids [%s ] /Count %d /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> >>", kids, n, FontNum)).
		Object(FontNum, "<< /Type /Font /Subtype /Type1 /BaseFont /Times-Roman >>")

	for i := 1; i <= n; i++ {
		b.Object(PageNum(i), fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", PagesNum, ContentNum(i)))
		b.Stream(ContentNum(i), "", []byte(fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Hello %d) Tj ET", i)))
	}
	return b
}
