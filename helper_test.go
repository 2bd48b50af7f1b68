package tagimg

import (
	"context"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

// wordMeasurer measures every word as 40px and every space as 10px.
type wordMeasurer struct{}

func (wordMeasurer) Measure(s string) int {
	return 40*len(strings.Fields(s)) + 10*strings.Count(s, " ")
}

func newTestFace(t *testing.T, size float64) *Face {
	t.Helper()
	f, err := NewFaceFromBytes(goregular.TTF, size)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = f.Close()
	})
	return f
}

// newFixedFace returns a 7x13 bitmap face where every glyph advances 7px.
func newFixedFace() *Face {
	return &Face{face: basicfont.Face7x13, size: 13}
}

func newTestRenderer(t *testing.T, opts ...func(*RenderConfig)) *Renderer {
	t.Helper()
	cfg := RenderConfig{
		Face:        newTestFace(t, 30),
		CanvasWidth: 400,
		Margin:      20,
		LineSpacing: 10,
		Background:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Foreground:  color.RGBA{A: 255},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

var testCreatedAt = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

type fakeFeed struct {
	posts map[string][]*Post
	errs  map[string]error
	calls []string
}

func (f *fakeFeed) Search(ctx context.Context, tag string, limit int) ([]*Post, error) {
	f.calls = append(f.calls, tag)
	if err := f.errs[tag]; err != nil {
		return nil, err
	}
	return f.posts[tag], nil
}

type published struct {
	PostID  string
	Caption string
	Width   int
	Height  int
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []published
}

func (p *fakePublisher) Publish(ctx context.Context, caption string, img *Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	id, _ := PostIDFromContext(ctx)
	p.published = append(p.published, published{
		PostID:  id,
		Caption: caption,
		Width:   img.Width(),
		Height:  img.Height(),
	})
	return nil
}

func (p *fakePublisher) Published() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.published...)
}
