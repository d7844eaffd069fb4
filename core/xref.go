package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// XRefEntry locates one object. Uncompressed objects have a byte Offset;
// objects stored in an object stream have Compressed set and are found at
// StreamIndex inside object StreamNumber.
type XRefEntry struct {
	Offset       int64
	Generation   int
	InUse        bool
	Compressed   bool
	StreamNumber int
	StreamIndex  int
}

// XRefTable maps object numbers to their entries, together with the
// trailer dictionary of the section it was read from.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable returns an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]*XRefEntry), Trailer: Dict{}}
}

// Get returns the entry for objNum.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

// Set stores the entry for objNum.
func (x *XRefTable) Set(objNum int, e *XRefEntry) { x.Entries[objNum] = e }

// Size returns the number of entries.
func (x *XRefTable) Size() int { return len(x.Entries) }

// XRefParser reads cross-reference sections from a PDF file.
type XRefParser struct {
	r io.ReadSeeker
}

// NewXRefParser returns a parser over r.
func NewXRefParser(r io.ReadSeeker) *XRefParser {
	return &XRefParser{r: r}
}

// startxrefWindow is how far from EOF the startxref keyword is searched for.
const startxrefWindow = 1024

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	size, err := x.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	window := int64(startxrefWindow)
	if size < window {
		window = size
	}
	if _, err := x.r.Seek(size-window, io.SeekStart); err != nil {
		return 0, err
	}
	tail := make([]byte, window)
	if _, err := io.ReadFull(x.r, tail); err != nil {
		return 0, fmt.Errorf("read file tail: %w", err)
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref has no offset")
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || offset < 0 || offset >= size {
		return 0, fmt.Errorf("invalid startxref offset %q", fields[0])
	}
	return offset, nil
}

// ParseXRef reads the cross-reference section at offset. Both the classic
// "xref" table form and the PDF 1.5 stream form are accepted. A classic
// table whose trailer names a hybrid /XRefStm has that stream's entries
// merged in for objects the table does not list.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if _, err := x.r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	p := NewParser(x.r)
	if !p.isKeyword("xref") {
		return parseXRefStream(p)
	}

	table, err := parseXRefTable(p)
	if err != nil {
		return nil, err
	}
	if stmOff, ok := table.Trailer.GetInt("XRefStm"); ok {
		hybrid, err := x.ParseXRef(int64(stmOff))
		if err != nil {
			return nil, fmt.Errorf("hybrid xref stream at %d: %w", stmOff, err)
		}
		for num, e := range hybrid.Entries {
			if cur, ok := table.Entries[num]; !ok || !cur.InUse {
				table.Entries[num] = e
			}
		}
	}
	return table, nil
}

func parseXRefTable(p *Parser) (*XRefTable, error) {
	p.advance() // xref
	table := NewXRefTable()
	for {
		p.skipComments()
		if p.isKeyword("trailer") {
			p.advance()
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is %s, want dictionary", obj.Type())
			}
			table.Trailer = trailer
			return table, nil
		}

		first, err := p.expectInt("subsection start")
		if err != nil {
			return nil, fmt.Errorf("xref table: %w", err)
		}
		count, err := p.expectInt("subsection count")
		if err != nil {
			return nil, fmt.Errorf("xref table: %w", err)
		}
		for i := 0; i < count; i++ {
			off, err := p.expectInt("entry offset")
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			gen, err := p.expectInt("entry generation")
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			var inUse bool
			switch {
			case p.isKeyword("n"):
				inUse = true
			case p.isKeyword("f"):
			default:
				return nil, fmt.Errorf("xref entry %d: expected n or f", first+i)
			}
			p.advance()
			table.Set(first+i, &XRefEntry{Offset: int64(off), Generation: gen, InUse: inUse})
		}
	}
}

func parseXRefStream(p *Parser) (*XRefTable, error) {
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object %s at startxref is not an xref stream", obj.Ref)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("stream %s has /Type %q, want /XRef", obj.Ref, t)
	}
	return DecodeXRefStream(stream)
}

// DecodeXRefStream decodes the entries of a /Type /XRef stream. The stream
// dictionary becomes the trailer.
func DecodeXRefStream(stream *Stream) (*XRefTable, error) {
	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W must be a 3-element array")
	}
	var w [3]int
	for i, v := range wArr {
		n, ok := v.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream /W[%d] is invalid: %v", i, v)
		}
		w[i] = int(n)
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream /W is all zero")
	}

	size, _ := stream.Dict.GetInt("Size")
	index := Array{Int(0), size}
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		index = arr
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("xref stream /Index has odd length %d", len(index))
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, ok1 := index[i].(Int)
		count, ok2 := index[i+1].(Int)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("xref stream /Index entries must be integers")
		}
		for j := 0; j < int(count); j++ {
			if pos+rowLen > len(data) {
				return nil, fmt.Errorf("xref stream truncated at object %d", int(first)+j)
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			kind := int64(1)
			if w[0] > 0 {
				kind = readBigEndianInt(row[:w[0]])
			}
			f2 := readBigEndianInt(row[w[0] : w[0]+w[1]])
			f3 := readBigEndianInt(row[w[0]+w[1]:])

			num := int(first) + j
			switch kind {
			case 0:
				table.Set(num, &XRefEntry{Offset: f2, Generation: int(f3)})
			case 1:
				table.Set(num, &XRefEntry{Offset: f2, Generation: int(f3), InUse: true})
			case 2:
				table.Set(num, &XRefEntry{InUse: true, Compressed: true, StreamNumber: int(f2), StreamIndex: int(f3)})
			}
			// Other types are reserved and read as references to null.
		}
	}
	return table, nil
}

func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// ParseAllXRefs reads the section at startxref and every section reachable
// through /Prev, oldest first.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, fmt.Errorf("xref /Prev chain loops at offset %d", offset)
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("xref at offset %d: %w", offset, err)
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			return tables, nil
		}
		offset = int64(prev)
	}
}

// MergeXRefTables merges sections oldest first, so later sections override
// earlier ones. The newest trailer wins.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, t := range tables {
		for num, e := range t.Entries {
			merged.Set(num, e)
		}
		merged.Trailer = t.Trailer
	}
	return merged
}
