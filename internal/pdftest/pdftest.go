// Package pdftest builds small, well-formed PDF files for tests. Offsets in
// the cross-reference data are computed, never hand-counted.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type object struct {
	num  int
	body []byte
}

// Builder accumulates numbered objects and serializes them as a PDF.
type Builder struct {
	version  string
	sections [][]object
	root     int
	info     int

	xrefStream bool
	packed     map[int]bool
}

// New returns an empty PDF 1.7 builder.
func New() *Builder {
	return &Builder{version: "1.7", sections: [][]object{nil}, packed: map[int]bool{}}
}

// Version sets the header version, e.g. "1.4".
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Object adds object num with the given body, e.g. "<< /Type /Catalog >>".
func (b *Builder) Object(num int, body string) *Builder {
	last := len(b.sections) - 1
	b.sections[last] = append(b.sections[last], object{num: num, body: []byte(body)})
	return b
}

// Stream adds a stream object. dict holds the dictionary entries without
// the surrounding << >>; /Length is appended.
func (b *Builder) Stream(num int, dict string, data []byte) *Builder {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	last := len(b.sections) - 1
	b.sections[last] = append(b.sections[last], object{num: num, body: buf.Bytes()})
	return b
}

// Root sets the trailer /Root.
func (b *Builder) Root(num int) *Builder {
	b.root = num
	return b
}

// Info sets the trailer /Info.
func (b *Builder) Info(num int) *Builder {
	b.info = num
	return b
}

// NewRevision starts an incremental update. Objects added afterwards are
// written in a new section whose trailer points back with /Prev.
func (b *Builder) NewRevision() *Builder {
	b.sections = append(b.sections, nil)
	return b
}

// UseXRefStream writes a single cross-reference stream instead of xref
// tables. The listed objects are packed into an object stream.
func (b *Builder) UseXRefStream(packed ...int) *Builder {
	b.xrefStream = true
	for _, n := range packed {
		b.packed[n] = true
	}
	return b
}

// Bytes serializes the document.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)
	if b.xrefStream {
		b.writeXRefStream(&buf)
		return buf.Bytes()
	}

	prev := -1
	maxNum := 0
	for i, sec := range b.sections {
		offsets := make(map[int]int)
		for _, o := range sec {
			offsets[o.num] = buf.Len()
			writeObject(&buf, o.num, o.body)
			if o.num > maxNum {
				maxNum = o.num
			}
		}

		xrefAt := buf.Len()
		buf.WriteString("xref\n")
		nums := sortedKeys(offsets)
		if i == 0 {
			nums = append([]int{0}, nums...)
		}
		for _, run := range runs(nums) {
			fmt.Fprintf(&buf, "%d %d\n", run[0], len(run))
			for _, n := range run {
				if n == 0 {
					buf.WriteString("0000000000 65535 f \n")
					continue
				}
				fmt.Fprintf(&buf, "%010d %05d n \n", offsets[n], 0)
			}
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d%s", maxNum+1, b.trailerRefs())
		if prev >= 0 {
			fmt.Fprintf(&buf, " /Prev %d", prev)
		}
		fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xrefAt)
		prev = xrefAt
	}
	return buf.Bytes()
}

func (b *Builder) trailerRefs() string {
	var s strings.Builder
	if b.root > 0 {
		fmt.Fprintf(&s, " /Root %d 0 R", b.root)
	}
	if b.info > 0 {
		fmt.Fprintf(&s, " /Info %d 0 R", b.info)
	}
	return s.String()
}

// writeXRefStream writes all objects, an object stream holding the packed
// ones, and an xref stream encoded with the PNG Up predictor.
func (b *Builder) writeXRefStream(buf *bytes.Buffer) {
	type loc struct {
		kind   byte
		f2, f3 int
	}
	entries := map[int]loc{0: {kind: 0, f2: 0, f3: 0xFFFF}}

	var all []object
	for _, sec := range b.sections {
		all = append(all, sec...)
	}
	maxNum := 0
	for _, o := range all {
		if o.num > maxNum {
			maxNum = o.num
		}
	}
	stmNum := maxNum + 1
	xrefNum := maxNum + 2

	var header, body bytes.Buffer
	idx := 0
	for _, o := range all {
		if !b.packed[o.num] {
			continue
		}
		fmt.Fprintf(&header, "%d %d ", o.num, body.Len())
		body.Write(o.body)
		body.WriteByte('\n')
		entries[o.num] = loc{kind: 2, f2: stmNum, f3: idx}
		idx++
	}

	for _, o := range all {
		if b.packed[o.num] {
			continue
		}
		entries[o.num] = loc{kind: 1, f2: buf.Len()}
		writeObject(buf, o.num, o.body)
	}
	if idx > 0 {
		data := append(header.Bytes(), body.Bytes()...)
		entries[stmNum] = loc{kind: 1, f2: buf.Len()}
		var ob bytes.Buffer
		fmt.Fprintf(&ob, "<< /Type /ObjStm /N %d /First %d /Filter /FlateDecode /Length %d >>\nstream\n",
			idx, header.Len(), len(deflate(data)))
		ob.Write(deflate(data))
		ob.WriteString("\nendstream")
		writeObject(buf, stmNum, ob.Bytes())
	}

	xrefAt := buf.Len()
	entries[xrefNum] = loc{kind: 1, f2: xrefAt}

	const cols = 7 // W [1 4 2]
	var rows bytes.Buffer
	prevRow := make([]byte, cols)
	for n := 0; n <= xrefNum; n++ {
		e, ok := entries[n]
		if !ok {
			e = loc{kind: 0}
		}
		row := []byte{e.kind,
			byte(e.f2 >> 24), byte(e.f2 >> 16), byte(e.f2 >> 8), byte(e.f2),
			byte(e.f3 >> 8), byte(e.f3)}
		rows.WriteByte(2)
		for i := range row {
			rows.WriteByte(row[i] - prevRow[i])
		}
		prevRow = row
	}
	enc := deflate(rows.Bytes())

	var xb bytes.Buffer
	fmt.Fprintf(&xb, "<< /Type /XRef /Size %d /W [1 4 2]%s /Filter /FlateDecode /DecodeParms << /Predictor 12 /Columns %d >> /Length %d >>\nstream\n",
		xrefNum+1, b.trailerRefs(), cols, len(enc))
	xb.Write(enc)
	xb.WriteString("\nendstream")
	writeObject(buf, xrefNum, xb.Bytes())
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefAt)
}

func writeObject(buf *bytes.Buffer, num int, body []byte) {
	fmt.Fprintf(buf, "%d 0 obj\n", num)
	buf.Write(body)
	buf.WriteString("\nendobj\n")
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// runs splits sorted numbers into consecutive runs, one per xref
// subsection.
func runs(nums []int) [][]int {
	var out [][]int
	for i, n := range nums {
		if i == 0 || n != nums[i-1]+1 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], n)
	}
	return out
}

// WriteFile writes data to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
