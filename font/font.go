// Package font rasterises fixed-width faces into the column-byte layout used
// by page-addressed displays: one byte per column for each 8-pixel page-row,
// bit i of a byte being row i of that page.
package font

import (
	"image"
	"unicode/utf8"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// Built-in fonts, rasterised at init.
var (
	// Large is an 8x16 face, used for headers and values.
	Large = New("inconsolata-8x16", inconsolata.Regular8x16, 8, 2)

	// Small is a 7x13 face in a 7x16 cell, used for error messages.
	Small = New("basic-7x13", basicfont.Face7x13, 7, 2)
)

// Font is a bitmap font covering printable ASCII.
type Font struct {
	Name  string
	Width int // advance and glyph width in columns
	Pages int // glyph height in 8-pixel pages

	glyphs map[rune][]byte
	blank  []byte
}

// New rasterises the printable ASCII range of face into width x pages*8
// cells. The face baseline sits at its ascent.
func New(name string, face xfont.Face, width, pages int) *Font {
	f := &Font{
		Name:   name,
		Width:  width,
		Pages:  pages,
		glyphs: make(map[rune][]byte, '~'-' '+1),
		blank:  make([]byte, width*pages),
	}
	for r := ' '; r <= '~'; r++ {
		f.glyphs[r] = rasterise(face, r, width, pages)
	}
	return f
}

func rasterise(face xfont.Face, r rune, width, pages int) []byte {
	img := image.NewAlpha(image.Rect(0, 0, width, pages*8))
	d := xfont.Drawer{
		Dst:  img,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{Y: face.Metrics().Ascent},
	}
	d.DrawString(string(r))

	out := make([]byte, width*pages)
	for p := 0; p < pages; p++ {
		for x := 0; x < width; x++ {
			var b byte
			for i := 0; i < 8; i++ {
				if img.AlphaAt(x, p*8+i).A >= 0x80 {
					b |= 1 << i
				}
			}
			out[p*width+x] = b
		}
	}
	return out
}

// Glyph returns the bitmap for r. Runes outside the font are blank.
func (f *Font) Glyph(r rune) []byte {
	if g, ok := f.glyphs[r]; ok {
		return g
	}
	return f.blank
}

// TextWidth returns the width of s in columns.
func (f *Font) TextWidth(s string) int {
	return utf8.RuneCountInString(s) * f.Width
}

// Bitmap lays out s as a single bitmap, returning it with its width in
// columns. The height is f.Pages*8 pixels.
func (f *Font) Bitmap(s string) ([]byte, int) {
	w := f.TextWidth(s)
	out := make([]byte, w*f.Pages)
	x := 0
	for _, r := range s {
		g := f.Glyph(r)
		for p := 0; p < f.Pages; p++ {
			copy(out[p*w+x:p*w+x+f.Width], g[p*f.Width:(p+1)*f.Width])
		}
		x += f.Width
	}
	return out, w
}
