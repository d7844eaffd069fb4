package filters

import "fmt"

// RunLengthDecode expands PackBits-style runs. A length byte L below 128
// copies the next L+1 bytes, above 128 repeats the next byte 257-L times,
// and 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		l := int(data[i])
		i++
		switch {
		case l == 128:
			return out, nil
		case l < 128:
			if i+l+1 > len(data) {
				return nil, fmt.Errorf("runlength: literal run of %d bytes overruns input", l+1)
			}
			out = append(out, data[i:i+l+1]...)
			i += l + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("runlength: repeat run missing its byte")
			}
			for j := 0; j < 257-l; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}
