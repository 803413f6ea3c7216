package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeToUTF8 decodes a scraped page body to UTF-8. contentType is the
// Content-Type header of the response or a bare charset label, possibly empty.
// The encoding is taken from, in order:
// - a byte order mark
// - the charset announced in contentType
// - a <meta> charset declaration in the first 1024 bytes
// - UTF-8 when the body is valid UTF-8
// - Shift_JIS, EUC-KR and GB18030 guessed in that order
// - windows-1252
func DecodeToUTF8(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
		if utf8.Valid(data) {
			return string(data), nil
		}
	}
	if bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) {
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}

	if label := strings.TrimSpace(contentType); label != "" && !strings.Contains(label, "/") {
		contentType = "text/html; charset=" + label
	}
	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" && utf8.Valid(data) {
		return string(data), nil
	}

	// windows-1252 is the fallback of DetermineEncoding, not a finding
	if !certain && name == "windows-1252" && !utf8.Valid(data) {
		for _, dec := range []transform.Transformer{
			japanese.ShiftJIS.NewDecoder(),
			korean.EUCKR.NewDecoder(),
			simplifiedchinese.GB18030.NewDecoder(),
		} {
			if s, err := decodeWith(data, dec); err == nil && clean(s) {
				return s, nil
			}
		}
	}

	s, err := decodeWith(data, enc.NewDecoder())
	if err != nil {
		return "", fmt.Errorf("unable to decode page as %s: %w", name, err)
	}
	return s, nil
}

func decodeWith(data []byte, dec transform.Transformer) (string, error) {
	b, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// clean reports whether s decoded without replacement characters.
func clean(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, utf8.RuneError)
}
