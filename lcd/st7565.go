// Package lcd drives ST7565-family graphic LCDs (128x64 pixels, addressed as
// eight 8-pixel pages of 128 columns) through a byte-oriented command/data
// transport.
package lcd // import "github.com/DrJosh9000/hudl/lcd"

import (
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/DrJosh9000/hudl/font"
)

// Display geometry.
const (
	Width  = 128
	Height = 64
	Pages  = Height / 8
)

// ST7565 command bytes.
const (
	CmdADCNormal     = 0xA0
	CmdBias          = 0xA2 // 1/9 bias
	CmdDisplayOff    = 0xAE
	CmdDisplayOn     = 0xAF
	CmdCOMReverse    = 0xC8
	CmdPowerControl  = 0x2F // booster, regulator and follower on
	CmdResistorRatio = 0x26
	CmdVolume        = 0x81 // followed by the contrast value
	CmdStartLine     = 0x40
	CmdPageAddress   = 0xB0
	CmdColumnUpper   = 0x10
	CmdColumnLower   = 0x00
)

// DefaultContrast is the electronic volume value written by Init when
// Contrast is zero.
const DefaultContrast = 0x11

// Transport frames a single byte as either a controller command or display
// data. Implementations are fire-and-forget: the controller gives nothing
// back.
type Transport interface {
	WriteCommand(b uint8)
	WriteData(b uint8)
}

// ST7565 implements drawing primitives for an ST7565 controller. RST is
// optional; without it Reset does nothing and the controller relies on its
// power-on reset.
type ST7565 struct {
	T        Transport
	RST      gpio.PinOut // hardware reset, active low
	Contrast uint8       // electronic volume, uses DefaultContrast if 0
}

// Reset pulses the hardware reset line.
func (d *ST7565) Reset() {
	if d.RST == nil {
		return
	}
	d.RST.Out(gpio.Low)
	time.Sleep(100 * time.Millisecond)
	d.RST.Out(gpio.High)
	time.Sleep(100 * time.Millisecond)
}

// Init sends the controller configuration sequence. The order matters.
func (d *ST7565) Init() {
	contrast := d.Contrast
	if contrast == 0 {
		contrast = DefaultContrast
	}
	d.T.WriteCommand(CmdADCNormal)
	d.T.WriteCommand(CmdDisplayOff)
	d.T.WriteCommand(CmdCOMReverse)
	d.T.WriteCommand(CmdBias)
	d.T.WriteCommand(CmdPowerControl)
	d.T.WriteCommand(CmdResistorRatio)
	d.T.WriteCommand(CmdVolume)
	d.T.WriteCommand(contrast)
	d.T.WriteCommand(CmdDisplayOn)
}

// ClearScreen blanks the whole display RAM. The display is switched off
// while the pages are cleared.
func (d *ST7565) ClearScreen() {
	d.T.WriteCommand(CmdDisplayOff)
	d.T.WriteCommand(CmdStartLine)
	for p := 0; p < Pages; p++ {
		d.T.WriteCommand(CmdPageAddress + uint8(p))
		d.T.WriteCommand(CmdColumnUpper)
		d.T.WriteCommand(CmdColumnLower)
		for c := 0; c < Width; c++ {
			d.T.WriteData(0x00)
		}
	}
	d.T.WriteCommand(CmdDisplayOn)
}

// SetPixelColumn positions the column pointer and writes one byte of 8
// vertical pixels. Bit i of data is row i of the page; a set bit is lit.
func (d *ST7565) SetPixelColumn(page, colUpper, colLower, data uint8) {
	d.T.WriteCommand(CmdStartLine)
	d.T.WriteCommand(CmdPageAddress + page)
	d.T.WriteCommand(CmdColumnUpper + colUpper)
	d.T.WriteCommand(CmdColumnLower + colLower)
	d.T.WriteData(data)
}

// DriveColumn writes data to the given page and column. Positions off the
// display are ignored.
func (d *ST7565) DriveColumn(page, column int, data uint8) {
	if page < 0 || page >= Pages || column < 0 || column >= Width {
		return
	}
	d.SetPixelColumn(uint8(page), uint8(column>>4), uint8(column&0x0F), data)
}

// ClearRegion erases a rectangle of width columns by height pixels starting
// at the given page and column. Height is rounded down to whole pages.
func (d *ST7565) ClearRegion(width, height, page, column int) {
	for p := 0; p < height/8; p++ {
		for c := 0; c < width; c++ {
			d.DriveColumn(page+p, column+c, 0x00)
		}
	}
}

// Blit writes a bitmap of width columns by height pixels. The bitmap holds
// one byte per column for each page-row, page-rows first to last. Each
// source pixel is drawn as a scale x scale block; scale values below 1 are
// treated as 1.
func (d *ST7565) Blit(bitmap []byte, width, height, page, column, scale int) {
	if scale < 1 {
		scale = 1
	}
	srcPages := height / 8
	if width <= 0 || srcPages <= 0 || len(bitmap) < width*srcPages {
		return
	}
	if scale == 1 {
		for p := 0; p < srcPages; p++ {
			for c := 0; c < width; c++ {
				d.DriveColumn(page+p, column+c, bitmap[p*width+c])
			}
		}
		return
	}
	for p := 0; p < srcPages*scale; p++ {
		for c := 0; c < width*scale; c++ {
			sx := c / scale
			var b uint8
			for i := 0; i < 8; i++ {
				sy := (p*8 + i) / scale
				if bitmap[(sy/8)*width+sx]&(1<<(sy%8)) != 0 {
					b |= 1 << i
				}
			}
			d.DriveColumn(page+p, column+c, b)
		}
	}
}

// WriteText draws s with the given bitmap font, starting at page and column.
// Glyphs that run off the right edge are clipped.
func (d *ST7565) WriteText(s string, page, column int, f *font.Font) {
	for _, r := range s {
		if column >= Width {
			return
		}
		d.Blit(f.Glyph(r), f.Width, f.Pages*8, page, column, 1)
		column += f.Width
	}
}
