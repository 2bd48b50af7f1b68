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
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/k1LoW/tagimg"
	"github.com/k1LoW/tagimg/config"
	"github.com/spf13/cobra"
)

var (
	out    string
	author string
	at     string
)

var renderCmd = &cobra.Command{
	Use:   "render [TEXT]",
	Short: "render text as a post image",
	Long:  `render text as a post image using the configured font, colors and layout. If TEXT is omitted, it is read from stdin.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = strings.TrimRight(string(b), "\n")
		}
		createdAt := time.Now()
		if at != "" {
			createdAt, err = time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", at, err)
			}
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		img, err := renderer.RenderPost(&tagimg.Post{
			ID:        "preview",
			Text:      text,
			Author:    author,
			CreatedAt: createdAt,
		})
		if err != nil {
			return err
		}
		defer img.Release()
		if err := os.WriteFile(out, img.Bytes(), 0o600); err != nil {
			return err
		}
		cmd.Printf("%s (%dx%d)\n", out, img.Width(), img.Height())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&out, "out", "o", "tagimg.png", "output file")
	renderCmd.Flags().StringVarP(&author, "author", "a", tagimg.UnknownAuthor, "author printed below the text")
	renderCmd.Flags().StringVarP(&at, "at", "", "", "creation time printed below the text (RFC 3339, default now)")
}
