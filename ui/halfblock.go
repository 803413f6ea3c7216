package ui

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const upperHalfBlock = "▀"

func decodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return img, nil
}

// fitSize scales w×h to fit inside maxW×maxH keeping the aspect ratio.
func fitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	sw := float64(maxW) / float64(w)
	sh := float64(maxH) / float64(h)
	scale := min(sw, sh)
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}

// renderHalfBlocks draws img into exactly rows lines of at most cols cells.
// Each cell shows two vertical pixels: the upper one as foreground of "▀"
// and the lower one as background. The image is centered.
func renderHalfBlocks(img image.Image, cols, rows int) []string {
	lines := make([]string, rows)
	if img == nil || cols <= 0 || rows <= 0 {
		return lines
	}

	b := img.Bounds()
	dw, dh := fitSize(b.Dx(), b.Dy(), cols, rows*2)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	used := (dh + 1) / 2
	top := (rows - used) / 2
	pad := strings.Repeat(" ", (cols-dw)/2)

	var sb strings.Builder
	for y := 0; y < used; y++ {
		sb.Reset()
		sb.WriteString(pad)
		for x := 0; x < dw; x++ {
			upper := dst.RGBAAt(x, 2*y)
			writeColor(&sb, 38, upper)
			if 2*y+1 < dh {
				writeColor(&sb, 48, dst.RGBAAt(x, 2*y+1))
			} else {
				sb.WriteString("\x1b[49m")
			}
			sb.WriteString(upperHalfBlock)
		}
		sb.WriteString("\x1b[0m")
		lines[top+y] = sb.String()
	}
	return lines
}

// writeColor writes a truecolor SGR sequence; layer is 38 (fg) or 48 (bg).
func writeColor(sb *strings.Builder, layer int, c color.RGBA) {
	sb.WriteString("\x1b[")
	sb.WriteString(strconv.Itoa(layer))
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(c.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.B)))
	sb.WriteByte('m')
}
