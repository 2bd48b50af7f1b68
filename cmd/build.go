/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k1LoW/tagimg"
	"github.com/k1LoW/tagimg/config"
	"github.com/k1LoW/tagimg/x"
)

func newRenderer(cfg *config.Config) (*tagimg.Renderer, error) {
	face, err := tagimg.NewFace(cfg.FontPath, float64(cfg.FontSize))
	if err != nil {
		return nil, err
	}
	bg, err := config.ParseRGB(cfg.BackgroundColor)
	if err != nil {
		return nil, err
	}
	fg, err := config.ParseRGB(cfg.TextColor)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return tagimg.NewRenderer(tagimg.RenderConfig{
		Face:        face,
		CanvasWidth: cfg.ImageWidth,
		Margin:      *cfg.Margin,
		LineSpacing: *cfg.LineSpacing,
		Background:  bg,
		Foreground:  fg,
		Location:    loc,
	})
}

func newXClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, interactive bool) (*x.Client, error) {
	lang := ""
	if cfg.Lang != nil {
		lang = *cfg.Lang
	}
	return x.New(ctx,
		x.WithCredentials(cfg.ClientID, cfg.ClientSecret),
		x.WithBearerToken(cfg.BearerToken),
		x.WithLang(lang),
		x.WithProfile(profile),
		x.WithInteractive(interactive),
		x.WithLogger(logger),
	)
}

func newPublisher(cfg *config.Config, client *x.Client, logger *slog.Logger) (tagimg.Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherX:
		return client, nil
	case config.PublisherCommand:
		return tagimg.NewCommandPublisher(cfg.PublishCommand, "", logger), nil
	case config.PublisherDir:
		return tagimg.NewDirPublisher(outputDir(cfg), logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher: %s", cfg.Publisher)
	}
}
