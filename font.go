package tagimg

import (
	"bytes"
	"fmt"
	"os"

	"github.com/k1LoW/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

const fontDPI = 72

// Measurer measures the rendered width of a string in pixels.
type Measurer interface {
	Measure(s string) int
}

var _ Measurer = (*Face)(nil)

// FontLoadError is returned when a font resource cannot be opened or parsed.
type FontLoadError struct {
	Path string
	Err  error
}

func (e *FontLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load font: %v", e.Err)
	}
	return fmt.Sprintf("failed to load font %s: %v", e.Path, e.Err)
}

func (e *FontLoadError) Unwrap() error {
	return e.Err
}

// Face is a font face fixed at a single point size.
// It is not safe for concurrent use.
type Face struct {
	face font.Face
	size float64
}

// NewFace loads the font at path and creates a face of the given size.
func NewFace(path string, size float64) (_ *Face, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &FontLoadError{Path: path, Err: err}
	}
	return newFace(path, b, size)
}

// NewFaceFromBytes creates a face from OpenType/TrueType data (or a collection of them).
func NewFaceFromBytes(b []byte, size float64) (_ *Face, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	return newFace("", b, size)
}

func newFace(path string, b []byte, size float64) (*Face, error) {
	if size <= 0 {
		return nil, &FontLoadError{Path: path, Err: fmt.Errorf("invalid font size: %v", size)}
	}
	var (
		parsed *opentype.Font
		err    error
	)
	if isCollection(b) {
		c, err := opentype.ParseCollection(b)
		if err != nil {
			return nil, &FontLoadError{Path: path, Err: err}
		}
		if c.NumFonts() == 0 {
			return nil, &FontLoadError{Path: path, Err: fmt.Errorf("font collection is empty")}
		}
		parsed, err = c.Font(0)
		if err != nil {
			return nil, &FontLoadError{Path: path, Err: err}
		}
	} else {
		parsed, err = opentype.Parse(b)
		if err != nil {
			return nil, &FontLoadError{Path: path, Err: err}
		}
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, &FontLoadError{Path: path, Err: err}
	}
	return &Face{
		face: face,
		size: size,
	}, nil
}

// Measure returns the advance width of s in pixels.
func (f *Face) Measure(s string) int {
	return font.MeasureString(f.face, s).Ceil()
}

// Size returns the point size of the face. At 72 DPI a point is a pixel.
func (f *Face) Size() int {
	return int(f.size)
}

// Ascent returns the distance in pixels from the top of a line to its baseline.
func (f *Face) Ascent() int {
	return f.face.Metrics().Ascent.Ceil()
}

func (f *Face) Close() error {
	return f.face.Close()
}

func isCollection(b []byte) bool {
	return bytes.HasPrefix(b, []byte("ttcf"))
}
