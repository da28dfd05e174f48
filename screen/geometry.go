package screen

import "fmt"

// Quadrant geometry. Each quadrant is 64x32 pixels: a two-page header band
// above a two-page data band.
const (
	QuadrantWidth = 64
	QuadrantPages = 4
	HeaderPages   = 2
	DataPages     = QuadrantPages - HeaderPages
)

// Corner names a quadrant of the display.
type Corner int

// Corners, in drawing order.
const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight

	numCorners
)

var cornerNames = [numCorners]string{"TopLeft", "TopRight", "BottomLeft", "BottomRight"}

func (c Corner) String() string {
	if c < 0 || c >= numCorners {
		return fmt.Sprintf("Corner(%d)", int(c))
	}
	return cornerNames[c]
}

// Corners returns every corner in drawing order.
func Corners() []Corner {
	return []Corner{TopLeft, TopRight, BottomLeft, BottomRight}
}

var cornerOrigin = [numCorners]struct{ column, page int }{
	TopLeft:     {0, 0},
	TopRight:    {64, 0},
	BottomLeft:  {0, 4},
	BottomRight: {64, 4},
}

// ColumnForCorner returns the first column of the quadrant.
func ColumnForCorner(c Corner) int { return cornerOrigin[c].column }

// PageForCorner returns the first page of the quadrant.
func PageForCorner(c Corner) int { return cornerOrigin[c].page }

// Region is a rectangle on the display in page/column coordinates.
type Region struct {
	Page, Column  int
	Width, Height int // columns, pixels
}

// HeaderRegion returns the header band of a quadrant.
func HeaderRegion(c Corner) Region {
	return Region{
		Page:   PageForCorner(c),
		Column: ColumnForCorner(c),
		Width:  QuadrantWidth,
		Height: HeaderPages * 8,
	}
}

// DataRegion returns the data band of a quadrant.
func DataRegion(c Corner) Region {
	return Region{
		Page:   PageForCorner(c) + HeaderPages,
		Column: ColumnForCorner(c),
		Width:  QuadrantWidth,
		Height: DataPages * 8,
	}
}
