package x

import (
	"log/slog"
	"testing"
	"time"

	"github.com/k1LoW/tagimg"
	"golang.org/x/image/font/gofont/goregular"
)

func renderImage(t *testing.T) *tagimg.Image {
	t.Helper()
	face, err := tagimg.NewFaceFromBytes(goregular.TTF, 20)
	if err != nil {
		t.Fatal(err)
	}
	r, err := tagimg.NewRenderer(tagimg.RenderConfig{
		Face:        face,
		CanvasWidth: 300,
		Margin:      10,
		LineSpacing: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := r.Render([]string{"Hello"}, "alice", time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
