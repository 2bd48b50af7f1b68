package tagimg

import "image"

// footerLines is the number of lines reserved below the body (author and timestamp).
const footerLines = 2

// CanvasHeight returns the height of a canvas holding lineCount body lines and the footer.
func CanvasHeight(lineCount, fontSize, lineSpacing, margin int) int {
	return lineCount*(fontSize+lineSpacing) + 2*margin + footerLines*fontSize
}

// Layout is the placement of every text element on the canvas.
// Points are the top-left corner of each line.
type Layout struct {
	Width     int
	Height    int
	Lines     []image.Point
	Author    image.Point
	Timestamp image.Point
}

// NewLayout computes the placement of lineCount body lines and the footer.
func NewLayout(lineCount, width, fontSize, lineSpacing, margin int) *Layout {
	l := &Layout{
		Width:  width,
		Height: CanvasHeight(lineCount, fontSize, lineSpacing, margin),
		Lines:  make([]image.Point, 0, lineCount),
	}
	y := margin
	for range lineCount {
		l.Lines = append(l.Lines, image.Pt(margin, y))
		y += fontSize + lineSpacing
	}
	y += lineSpacing
	l.Author = image.Pt(margin, y)
	l.Timestamp = image.Pt(margin, y+fontSize)
	return l
}

// Bounds returns the canvas rectangle.
func (l *Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}
