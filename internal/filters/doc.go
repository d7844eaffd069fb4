// Package filters implements the PDF stream decode filters needed to read
// page trees and optional content out of real-world files.
//
// Filters are looked up by their PDF name, including the abbreviated forms
// allowed in inline images:
//
//	dec, ok := filters.Lookup("FlateDecode")
//	if ok {
//	    data, err = dec(data, filters.Params{"Predictor": 12, "Columns": 5})
//	}
//
// Supported filters are FlateDecode (with TIFF and PNG predictors),
// ASCIIHexDecode, ASCII85Decode, RunLengthDecode and CCITTFaxDecode.
// Image codecs such as DCTDecode and JPXDecode pass data through unchanged,
// since nothing in this module needs decoded pixels.
package filters
