package filters

// Params holds decode parameters taken from a stream's /DecodeParms
// dictionary, already converted to Go primitives.
type Params map[string]interface{}

// Int returns the integer parameter key, or def when it is missing or not
// numeric.
func (p Params) Int(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean parameter key, or def when it is missing or not
// a boolean.
func (p Params) Bool(key string, def bool) bool {
	if p == nil {
		return def
	}
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Decoder decodes one filter stage.
type Decoder func(data []byte, params Params) ([]byte, error)

var registry = map[string]Decoder{
	"FlateDecode":     FlateDecode,
	"Fl":              FlateDecode,
	"ASCIIHexDecode":  ignoreParams(ASCIIHexDecode),
	"AHx":             ignoreParams(ASCIIHexDecode),
	"ASCII85Decode":   ignoreParams(ASCII85Decode),
	"A85":             ignoreParams(ASCII85Decode),
	"RunLengthDecode": ignoreParams(RunLengthDecode),
	"RL":              ignoreParams(RunLengthDecode),
	"CCITTFaxDecode":  CCITTFaxDecode,
	"CCF":             CCITTFaxDecode,
	"DCTDecode":       passThrough,
	"DCT":             passThrough,
	"JPXDecode":       passThrough,
}

// Lookup returns the decoder registered for the filter name.
func Lookup(name string) (Decoder, bool) {
	d, ok := registry[name]
	return d, ok
}

func ignoreParams(fn func([]byte) ([]byte, error)) Decoder {
	return func(data []byte, _ Params) ([]byte, error) {
		return fn(data)
	}
}

func passThrough(data []byte, _ Params) ([]byte, error) {
	return data, nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
