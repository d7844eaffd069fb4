package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes the predictor named by the
// Predictor parameter, if any.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		// Truncated streams are common; keep what inflated cleanly.
		if len(out) == 0 || err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("flate: %w", err)
		}
	}

	predictor := params.Int("Predictor", 1)
	switch {
	case predictor <= 1:
		return out, nil
	case predictor == 2:
		return unpredictTIFF(out, params)
	case predictor >= 10 && predictor <= 15:
		return unpredictPNG(out, params)
	default:
		return nil, fmt.Errorf("flate: unsupported predictor %d", predictor)
	}
}

func unpredictTIFF(data []byte, params Params) ([]byte, error) {
	colors := params.Int("Colors", 1)
	if bpc := params.Int("BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("tiff predictor: %d bits per component not supported", bpc)
	}
	rowSize := params.Int("Columns", 1) * colors
	if rowSize <= 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("tiff predictor: %d bytes is not a whole number of %d-byte rows", len(data), rowSize)
	}

	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += rowSize {
		for i := colors; i < rowSize; i++ {
			out[start+i] += out[start+i-colors]
		}
	}
	return out, nil
}

// unpredictPNG reverses PNG row filters. Each encoded row carries its own
// filter type byte, so the Predictor value 10-15 only selects PNG mode.
func unpredictPNG(data []byte, params Params) ([]byte, error) {
	bpc := params.Int("BitsPerComponent", 8)
	colors := params.Int("Colors", 1)
	columns := params.Int("Columns", 1)

	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8
	if rowLen <= 0 {
		return nil, fmt.Errorf("png predictor: invalid row length %d", rowLen)
	}
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("png predictor: %d bytes is not a whole number of %d-byte rows", len(data), stride)
	}

	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		in := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		if err := unfilterRow(data[r*stride], in, cur, prev, bpp); err != nil {
			return nil, fmt.Errorf("png predictor row %d: %w", r, err)
		}
		prev = cur
	}
	return out, nil
}

func unfilterRow(kind byte, in, cur, prev []byte, bpp int) error {
	for i := range in {
		var left, upLeft byte
		if i >= bpp {
			left = cur[i-bpp]
			upLeft = prev[i-bpp]
		}
		up := prev[i]

		switch kind {
		case 0:
			cur[i] = in[i]
		case 1:
			cur[i] = in[i] + left
		case 2:
			cur[i] = in[i] + up
		case 3:
			cur[i] = in[i] + byte((int(left)+int(up))/2)
		case 4:
			cur[i] = in[i] + paeth(left, up, upLeft)
		default:
			return fmt.Errorf("unknown filter type %d", kind)
		}
	}
	return nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
