package copier

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/tsawler/pagecheck/core"
)

// writeDocument lays out a complete classic-xref PDF. Object numbers below
// size that are missing from objects are written as free entries.
func writeDocument(buf *bytes.Buffer, version string, objects map[int]core.Object, size int, root, info core.IndirectRef) {
	fmt.Fprintf(buf, "%%PDF-%s\n", version)
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	nums := make([]int, 0, len(objects))
	for num := range objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	offsets := make(map[int]int, len(nums))
	for _, num := range nums {
		offsets[num] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n", num)
		writeObject(buf, objects[num])
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n", size)
	fmt.Fprintf(buf, "%010d %05d f \n", 0, 65535)
	for i := 1; i < size; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(buf, "%010d %05d n \n", off, 0)
		} else {
			fmt.Fprintf(buf, "%010d %05d f \n", 0, 1)
		}
	}

	buf.WriteString("trailer\n")
	writeObject(buf, core.Dict{
		"Size": core.Int(size),
		"Root": root,
		"Info": info,
	})
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xref)
}

// writeObject serializes obj in PDF syntax. Dictionary keys are written in
// sorted order so output is reproducible.
func writeObject(buf *bytes.Buffer, obj core.Object) {
	switch v := obj.(type) {
	case nil, core.Null:
		buf.WriteString("null")
	case core.Bool:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case core.Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		buf.WriteString(formatNumber(float64(v)))
	case core.String:
		writeString(buf, string(v))
	case core.Name:
		writeName(buf, string(v))
	case core.IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	case core.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case core.Dict:
		buf.WriteString("<<")
		for _, key := range v.Keys() {
			writeName(buf, key)
			buf.WriteByte(' ')
			writeObject(buf, v[key])
			buf.WriteByte(' ')
		}
		buf.WriteString(">>")
	case *core.Stream:
		dict := v.Dict.Clone()
		dict["Length"] = core.Int(len(v.Data))
		writeObject(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString(obj.String())
	}
}

// writeString writes a literal string, escaping delimiters and anything
// outside printable ASCII as octal.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == ')' || c == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(buf, "\\%03o", c)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
