package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data. K below zero selects
// Group 4. Columns defaults to 1728 and a missing Rows lets the decoder find
// the height. BlackIs1 maps onto the decoder's Invert option.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	sf := ccitt.Group3
	if params.Int("K", 0) < 0 {
		sf = ccitt.Group4
	}

	rows := params.Int("Rows", 0)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf,
		params.Int("Columns", 1728), rows,
		&ccitt.Options{Invert: params.Bool("BlackIs1", false)})
	return io.ReadAll(r)
}
