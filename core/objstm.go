package core

import (
	"bytes"
	"fmt"
)

// ObjectStream gives access to the objects packed into a /Type /ObjStm
// stream. The stream is decoded lazily on first access.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends IndirectRef
	hasExt  bool

	decoded []byte
	nums    []int
	offsets []int
	cache   map[int]Object
}

// NewObjectStream validates the stream dictionary of an object stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream has /Type %q, want /ObjStm", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}

	os := &ObjectStream{stream: stream, n: int(n), first: int(first), cache: make(map[int]Object)}
	if ext, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends, os.hasExt = ext, true
	}
	return os, nil
}

// N returns the declared number of objects.
func (os *ObjectStream) N() int { return os.n }

// Extends returns the object stream this one extends, if any.
func (os *ObjectStream) Extends() (IndirectRef, bool) { return os.extends, os.hasExt }

func (os *ObjectStream) load() error {
	if os.decoded != nil {
		return nil
	}
	data, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("decode object stream: %w", err)
	}
	if os.first > len(data) {
		return fmt.Errorf("object stream /First %d beyond %d decoded bytes", os.first, len(data))
	}

	p := NewParser(bytes.NewReader(data[:os.first]))
	nums := make([]int, 0, os.n)
	offsets := make([]int, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err1 := p.expectInt("object number")
		off, err2 := p.expectInt("object offset")
		if err1 != nil || err2 != nil {
			return fmt.Errorf("object stream header pair %d is malformed", i)
		}
		nums = append(nums, num)
		offsets = append(offsets, off)
	}
	os.decoded, os.nums, os.offsets = data, nums, offsets
	return nil
}

// ObjectAt returns the object at index and its object number.
func (os *ObjectStream) ObjectAt(index int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.nums) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0,%d)", index, len(os.nums))
	}
	if obj, ok := os.cache[index]; ok {
		return obj, os.nums[index], nil
	}

	start := os.first + os.offsets[index]
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1]
	}
	if start > len(os.decoded) || end > len(os.decoded) || start > end {
		return nil, 0, fmt.Errorf("object stream index %d has bad offset %d", index, os.offsets[index])
	}

	obj, err := NewParser(bytes.NewReader(os.decoded[start:end])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object stream index %d: %w", index, err)
	}
	os.cache[index] = obj
	return obj, os.nums[index], nil
}

// Object returns the object numbered num, preferring the given index hint
// and falling back to a scan of the header.
func (os *ObjectStream) Object(num, hint int) (Object, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	if hint >= 0 && hint < len(os.nums) && os.nums[hint] == num {
		obj, _, err := os.ObjectAt(hint)
		return obj, err
	}
	for i, n := range os.nums {
		if n == num {
			obj, _, err := os.ObjectAt(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", num)
}

// ObjectNumbers lists the object numbers stored in the stream.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	return append([]int(nil), os.nums...), nil
}
