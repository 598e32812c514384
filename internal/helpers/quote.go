package helpers

import "unicode/utf8"

const hexChars = "0123456789ABCDEF"

// QuoteForJSON returns the text as a double-quoted JavaScript string literal.
// The result is also valid JSON.
func QuoteForJSON(text string, asciiOnly bool) []byte {
	bytes := make([]byte, 0, len(text)+2)
	bytes = append(bytes, '"')

	for i := 0; i < len(text); {
		c, width := utf8.DecodeRuneInString(text[i:])
		i += width

		switch c {
		case '\b':
			bytes = append(bytes, "\\b"...)
		case '\f':
			bytes = append(bytes, "\\f"...)
		case '\n':
			bytes = append(bytes, "\\n"...)
		case '\r':
			bytes = append(bytes, "\\r"...)
		case '\t':
			bytes = append(bytes, "\\t"...)
		case '\\':
			bytes = append(bytes, "\\\\"...)
		case '"':
			bytes = append(bytes, "\\\""...)

		default:
			if c >= 0x20 && c < 0x7F {
				bytes = append(bytes, byte(c))
			} else if c >= 0x7F && !asciiOnly && c != utf8.RuneError && c != '\u2028' && c != '\u2029' && c != '\uFEFF' {
				bytes = utf8.AppendRune(bytes, c)
			} else if c <= 0xFFFF {
				bytes = appendEscape(bytes, c)
			} else {
				c -= 0x10000
				bytes = appendEscape(bytes, 0xD800+((c>>10)&0x3FF))
				bytes = appendEscape(bytes, 0xDC00+(c&0x3FF))
			}
		}
	}

	return append(bytes, '"')
}

func appendEscape(bytes []byte, c rune) []byte {
	return append(bytes, '\\', 'u', hexChars[c>>12], hexChars[(c>>8)&15], hexChars[(c>>4)&15], hexChars[c&15])
}
