package core

import (
	"fmt"

	"github.com/tsawler/pagecheck/internal/filters"
)

// Decode returns the stream data with every filter in /Filter applied in
// order. The result is cached.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}

	var names Array
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return s.Data, nil
	case Name:
		names = Array{f}
	case Array:
		names = f
	default:
		return nil, fmt.Errorf("invalid /Filter %s", f.Type())
	}

	parms := s.Dict.Get("DecodeParms")
	data := s.Data
	for i, obj := range names {
		name, ok := obj.(Name)
		if !ok {
			return nil, fmt.Errorf("filter %d is %s, want name", i, obj.Type())
		}
		if name == "Crypt" {
			return nil, fmt.Errorf("encrypted streams are not supported")
		}
		dec, ok := filters.Lookup(string(name))
		if !ok {
			return nil, fmt.Errorf("unsupported filter /%s", name)
		}

		var p Object = parms
		if arr, ok := parms.(Array); ok {
			p = nil
			if i < len(arr) {
				p = arr[i]
			}
		}
		var err error
		if data, err = dec(data, toParams(p)); err != nil {
			return nil, fmt.Errorf("filter /%s: %w", name, err)
		}
	}
	s.decoded = data
	return data, nil
}

func toParams(obj Object) filters.Params {
	dict, ok := obj.(Dict)
	if !ok {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch v := v.(type) {
		case Int:
			params[k] = int(v)
		case Real:
			params[k] = float64(v)
		case Bool:
			params[k] = bool(v)
		case Name:
			params[k] = string(v)
		case String:
			params[k] = string(v)
		}
	}
	return params
}
