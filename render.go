package tagimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/k1LoW/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TimestampLayout is the layout of the timestamp line in the footer.
const TimestampLayout = "2006-01-02 15:04:05"

// maxCanvasPixels caps the canvas allocation for a single post.
var maxCanvasPixels = 1 << 26

// RenderError is returned when a post cannot be rendered.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render (%s): %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderConfig is the read-only geometry and style of rendered images.
type RenderConfig struct {
	Face        *Face
	CanvasWidth int
	Margin      int
	LineSpacing int
	Background  color.RGBA
	Foreground  color.RGBA
	// Location is the time zone of the timestamp line. Defaults to UTC.
	Location *time.Location
}

// Validate checks the geometry of the config.
func (c RenderConfig) Validate() error {
	if c.Face == nil {
		return fmt.Errorf("font face is required")
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative: %d", c.Margin)
	}
	if c.LineSpacing < 0 {
		return fmt.Errorf("line spacing must not be negative: %d", c.LineSpacing)
	}
	if c.CanvasWidth <= 2*c.Margin {
		return fmt.Errorf("canvas width (%d) must be greater than twice the margin (%d)", c.CanvasWidth, c.Margin)
	}
	return nil
}

// TextWidth returns the maximum width of a body line.
func (c RenderConfig) TextWidth() int {
	return c.CanvasWidth - 2*c.Margin
}

// Renderer composes posts into images.
type Renderer struct {
	cfg RenderConfig
}

// NewRenderer creates a Renderer. cfg must not be modified afterwards.
func NewRenderer(cfg RenderConfig) (_ *Renderer, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render config: %w", err)
	}
	bg, fg := cfg.Background, cfg.Foreground
	bg.A, fg.A = 0xff, 0xff
	cfg.Background, cfg.Foreground = bg, fg
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Renderer{cfg: cfg}, nil
}

// Config returns the config of the renderer.
func (r *Renderer) Config() RenderConfig {
	return r.cfg
}

// Wrap wraps text to the body width of the canvas.
func (r *Renderer) Wrap(text string) []string {
	return Wrap(text, r.cfg.TextWidth(), r.cfg.Face)
}

// RenderPost wraps the text of p and renders it with its author and timestamp.
func (r *Renderer) RenderPost(p *Post) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if p == nil {
		return nil, &RenderError{Op: "input", Err: fmt.Errorf("post is nil")}
	}
	return r.Render(r.Wrap(p.Text), p.Author, p.CreatedAt)
}

// Render draws lines followed by the author and timestamp footer.
func (r *Renderer) Render(lines []string, author string, createdAt time.Time) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	fontSize := r.cfg.Face.Size()
	l := NewLayout(len(lines), r.cfg.CanvasWidth, fontSize, r.cfg.LineSpacing, r.cfg.Margin)
	if l.Width*l.Height > maxCanvasPixels {
		return nil, &RenderError{Op: "allocate", Err: fmt.Errorf("canvas too large: %dx%d", l.Width, l.Height)}
	}

	img := image.NewRGBA(l.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{C: r.cfg.Background}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.cfg.Foreground),
		Face: r.cfg.Face.face,
	}
	ascent := r.cfg.Face.Ascent()
	drawLine := func(s string, at image.Point) {
		d.Dot = fixed.P(at.X, at.Y+ascent)
		d.DrawString(s)
	}
	for i, line := range lines {
		drawLine(line, l.Lines[i])
	}
	drawLine("@"+author, l.Author)
	drawLine(createdAt.In(r.cfg.Location).Format(TimestampLayout), l.Timestamp)

	i, err := newImage(img)
	if err != nil {
		return nil, &RenderError{Op: "encode", Err: err}
	}
	return i, nil
}
