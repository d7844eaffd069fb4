package core

import "testing"

func TestDecodeTextString(t *testing.T) {
	tests := []struct {
		name string
		in   String
		want string
	}{
		{"ascii", String("Background"), "Background"},
		{"utf16be", String("\xfe\xff\x00L\x00a\x00y\x00e\x00r\x00 \x00\xe9"), "Layer é"},
		{"utf8 bom", String("\xef\xbb\xbfCalque \xc3\xa9"), "Calque é"},
		{"latin1", String("Ebene \xfc"), "Ebene ü"},
		{"pdfdoc punctuation", String("\x80 Notes \x93x \x8dq\x8e"), "• Notes ﬁx “q”"},
		{"pdfdoc euro and breve", String("\xa0 5\x18"), "€ 5˘"},
		{"pdfdoc dashes", String("A\x84B\x85C\x8aD"), "A—B–C−D"},
		{"empty", String(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeTextString(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeTextStringRoundTrip(t *testing.T) {
	for _, s := range []string{"Page 1", "Schicht ü", "レイヤー"} {
		if got := DecodeTextString(EncodeTextString(s)); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
	if got := EncodeTextString("plain"); got != "plain" {
		t.Errorf("ascii should be unchanged, got %q", got)
	}
}
