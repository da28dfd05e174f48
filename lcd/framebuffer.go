package lcd

import (
	"image"
	"image/color"
	"strings"
)

// Framebuffer is a Transport that emulates the controller's display RAM. It
// decodes page and column addressing and advances the column after every
// data byte, as the real controller does. It is used by the simulator and in
// tests.
type Framebuffer struct {
	RAM       [Pages][Width]uint8
	On        bool
	Contrast  uint8
	StartLine uint8

	page, column int
	volume       bool // next command byte is the contrast value
}

// WriteCommand decodes a controller command.
func (f *Framebuffer) WriteCommand(b uint8) {
	if f.volume {
		f.Contrast = b & 0x3F
		f.volume = false
		return
	}
	switch {
	case b == CmdDisplayOn:
		f.On = true
	case b == CmdDisplayOff:
		f.On = false
	case b == CmdVolume:
		f.volume = true
	case b&0xF0 == CmdPageAddress:
		f.page = int(b & 0x0F)
	case b&0xF0 == CmdColumnUpper:
		f.column = f.column&0x0F | int(b&0x0F)<<4
	case b&0xF0 == CmdColumnLower:
		f.column = f.column&0xF0 | int(b&0x0F)
	case b&0xC0 == CmdStartLine:
		f.StartLine = b & 0x3F
	}
}

// WriteData stores b at the current page and column.
func (f *Framebuffer) WriteData(b uint8) {
	if f.page < Pages && f.column < Width {
		f.RAM[f.page][f.column] = b
	}
	f.column++
}

// Pixel reports whether the pixel at x, y is lit.
func (f *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return f.RAM[y/8][x]&(1<<(y%8)) != 0
}

// Lit counts lit pixels in the rectangle of width columns by height pixels at
// page and column.
func (f *Framebuffer) Lit(width, height, page, column int) int {
	n := 0
	for y := page * 8; y < page*8+height; y++ {
		for x := column; x < column+width; x++ {
			if f.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

// Image returns the display contents, lit pixels black on white.
func (f *Framebuffer) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := color.Gray{Y: 0xFF}
			if f.Pixel(x, y) {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}
	return img
}

// String renders the display as text, two pixel rows per line using half
// block characters.
func (f *Framebuffer) String() string {
	var sb strings.Builder
	for y := 0; y < Height; y += 2 {
		for x := 0; x < Width; x++ {
			top, bottom := f.Pixel(x, y), f.Pixel(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Op is one byte sent to the controller.
type Op struct {
	Data bool // false for a command
	B    uint8
}

// Recorder is a Transport that records every byte in order.
type Recorder struct {
	Ops []Op
}

// WriteCommand records a command byte.
func (r *Recorder) WriteCommand(b uint8) { r.Ops = append(r.Ops, Op{B: b}) }

// WriteData records a data byte.
func (r *Recorder) WriteData(b uint8) { r.Ops = append(r.Ops, Op{Data: true, B: b}) }

// Reset forgets recorded bytes.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }
