package utils

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeToUTF8(t *testing.T) {
	const text = "第1話 はじまり"

	sjis, err := japanese.ShiftJIS.NewEncoder().String(text)
	if err != nil {
		t.Fatal(err)
	}
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(text)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{name: "utf-8", data: []byte(text)},
		{name: "utf-8 bom", data: append([]byte{0xEF, 0xBB, 0xBF}, text...)},
		{name: "utf-16 le bom", data: []byte(utf16)},
		{name: "announced shift_jis", data: []byte(sjis), contentType: "text/html; charset=Shift_JIS"},
		{name: "bare label", data: []byte(sjis), contentType: "Shift_JIS"},
		{name: "guessed shift_jis", data: []byte(sjis)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeToUTF8(tt.data, tt.contentType)
			if err != nil {
				t.Fatalf("DecodeToUTF8: %v", err)
			}
			if got != text {
				t.Fatalf("got %q, want %q", got, text)
			}
		})
	}
}

func TestDecodeToUTF8SingleByte(t *testing.T) {
	latin := []byte("caf\xe9 d\xe9j\xe0")
	cyrillic, err := charmap.Windows1251.NewEncoder().String("Глава 1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        string
	}{
		{"iso-8859-1 label", latin, "iso-8859-1", "café déjà"},
		{"windows-1252 header", latin, "text/html; charset=windows-1252", "café déjà"},
		{"windows-1251 header", []byte(cyrillic), "text/html; charset=windows-1251", "Глава 1"},
		{"unlabelled latin", latin, "", "café déjà"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeToUTF8(tt.data, tt.contentType)
			if err != nil {
				t.Fatalf("DecodeToUTF8: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeToUTF8MetaCharset(t *testing.T) {
	const title = "第一话"
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(title)
	if err != nil {
		t.Fatal(err)
	}
	page := []byte(`<html><head><meta charset="gbk"></head><body>` + gbk + `</body></html>`)

	got, err := DecodeToUTF8(page, "text/html")
	if err != nil {
		t.Fatal(err)
	}
	want := `<html><head><meta charset="gbk"></head><body>` + title + `</body></html>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeToUTF8Empty(t *testing.T) {
	if got, err := DecodeToUTF8(nil, "utf-8"); err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}
