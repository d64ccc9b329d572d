package esent

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var codepageEncodings = map[uint32]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	855:   charmap.CodePage855,
	858:   charmap.CodePage858,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	20866: charmap.KOI8R,
	21866: charmap.KOI8U,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28593: charmap.ISO8859_3,
	28594: charmap.ISO8859_4,
	28595: charmap.ISO8859_5,
	28596: charmap.ISO8859_6,
	28597: charmap.ISO8859_7,
	28598: charmap.ISO8859_8,
	28599: charmap.ISO8859_9,
	28603: charmap.ISO8859_13,
	28605: charmap.ISO8859_15,

	CodepageUnicode: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
}

// SupportedCodepage reports whether text in codepage can be decoded.
func SupportedCodepage(codepage uint32) bool {
	if codepage == CodepageASCII || codepage == CodepageUTF8 {
		return true
	}
	_, ok := codepageEncodings[codepage]
	return ok
}

// DecodeText turns codepage encoded bytes into a string. Trailing NUL
// characters are dropped.
func DecodeText(data []byte, codepage uint32) (string, error) {
	switch codepage {
	case CodepageASCII:
		return string(bytes.TrimRight(data, "\x00")), nil
	case CodepageUTF8:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid UTF-8 text: %w", ErrCorruptData)
		}
		return string(bytes.TrimRight(data, "\x00")), nil
	case CodepageUnicode:
		for len(data) >= 2 && data[len(data)-1] == 0 && data[len(data)-2] == 0 {
			data = data[:len(data)-2]
		}
	default:
		data = bytes.TrimRight(data, "\x00")
	}

	enc, ok := codepageEncodings[codepage]
	if !ok {
		return "", fmt.Errorf("codepage %d: %w", codepage, ErrUnsupportedValue)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding codepage %d text: %w", codepage, err)
	}
	return string(out), nil
}

// decodeName decodes catalog names, which use the configured codepage.
func decodeName(data []byte, codepage uint32) string {
	s, err := DecodeText(data, codepage)
	if err != nil {
		s, _ = DecodeText(data, CodepageWestern)
	}
	return s
}
