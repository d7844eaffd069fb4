package copier

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tsawler/pagecheck/font"
)

// Content builds a content stream drawn over a page. Methods chain:
//
//	c.BeginText().SetFontAndSize("Helvetica", 10).ShowText("draft").EndText()
//
// Fonts are named by their standard Type 1 base font; the stamp that owns
// the content adds matching font resources to the page when committed.
type Content struct {
	buf   bytes.Buffer
	fonts []string
}

// Bytes returns the operators written so far.
func (c *Content) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *Content) String() string {
	return c.buf.String()
}

// Len reports the number of bytes written.
func (c *Content) Len() int {
	return c.buf.Len()
}

// Fonts returns the base fonts referenced by SetFontAndSize, in first-use
// order.
func (c *Content) Fonts() []string {
	return c.fonts
}

// SaveState pushes the graphics state (q).
func (c *Content) SaveState() *Content {
	c.buf.WriteString("q\n")
	return c
}

// RestoreState pops the graphics state (Q).
func (c *Content) RestoreState() *Content {
	c.buf.WriteString("Q\n")
	return c
}

// Transform concatenates a matrix to the CTM (cm).
func (c *Content) Transform(a, b, cc, d, e, f float64) *Content {
	fmt.Fprintf(&c.buf, "%s cm\n", numbers(a, b, cc, d, e, f))
	return c
}

// SetFillGray sets a gray fill colour (g).
func (c *Content) SetFillGray(gray float64) *Content {
	fmt.Fprintf(&c.buf, "%s g\n", numbers(gray))
	return c
}

// BeginText opens a text object (BT).
func (c *Content) BeginText() *Content {
	c.buf.WriteString("BT\n")
	return c
}

// EndText closes a text object (ET).
func (c *Content) EndText() *Content {
	c.buf.WriteString("ET\n")
	return c
}

// SetFontAndSize selects a standard font such as "Helvetica" (Tf).
func (c *Content) SetFontAndSize(baseFont string, size float64) *Content {
	found := false
	for _, f := range c.fonts {
		if f == baseFont {
			found = true
			break
		}
	}
	if !found {
		c.fonts = append(c.fonts, baseFont)
	}
	c.buf.WriteString(fontResourceName(baseFont).String())
	fmt.Fprintf(&c.buf, " %s Tf\n", numbers(size))
	return c
}

// SetTextMatrix sets the text matrix (Tm).
func (c *Content) SetTextMatrix(a, b, cc, d, e, f float64) *Content {
	fmt.Fprintf(&c.buf, "%s Tm\n", numbers(a, b, cc, d, e, f))
	return c
}

// MoveText offsets the start of the next line (Td).
func (c *Content) MoveText(tx, ty float64) *Content {
	fmt.Fprintf(&c.buf, "%s Td\n", numbers(tx, ty))
	return c
}

// ShowText paints a string (Tj). Text is written byte for byte; the
// standard fonts use WinAnsi encoding.
func (c *Content) ShowText(text string) *Content {
	var b bytes.Buffer
	writeString(&b, text)
	b.WriteString(" Tj\n")
	c.buf.Write(b.Bytes())
	return c
}

// ShowTextAt is BeginText, SetFontAndSize, SetTextMatrix, ShowText and
// EndText for left-aligned, unrotated text at (x, y).
func (c *Content) ShowTextAt(baseFont string, size float64, x, y float64, text string) *Content {
	return c.BeginText().
		SetFontAndSize(baseFont, size).
		SetTextMatrix(1, 0, 0, 1, x, y).
		ShowText(text).
		EndText()
}

// ShowTextCentered is ShowTextAt with the text centred on x.
func (c *Content) ShowTextCentered(baseFont string, size float64, x, y float64, text string) *Content {
	return c.ShowTextAt(baseFont, size, x-font.StringWidth(baseFont, text, size)/2, y, text)
}

// ShowTextRight is ShowTextAt with the text ending at x.
func (c *Content) ShowTextRight(baseFont string, size float64, x, y float64, text string) *Content {
	return c.ShowTextAt(baseFont, size, x-font.StringWidth(baseFont, text, size), y, text)
}

func numbers(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, " ")
}
