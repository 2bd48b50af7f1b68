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
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/k1LoW/tagimg"
	"github.com/k1LoW/tagimg/config"
	"github.com/spf13/cobra"
)

var (
	once   bool
	dryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the bot",
	Long:  `run the bot. It processes every configured tag immediately and then once per interval until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		if dryRun {
			cfg.Publisher = config.PublisherDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, closeLogger, err := newLogger()
		if err != nil {
			return err
		}
		defer closeLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		client, err := newXClient(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		publisher, err := newPublisher(cfg, client, logger)
		if err != nil {
			return err
		}
		bot, err := tagimg.New(
			tagimg.WithFeed(client),
			tagimg.WithPublisher(publisher),
			tagimg.WithRenderer(renderer),
			tagimg.WithTags(cfg.Tags...),
			tagimg.WithMaxCandidates(cfg.MaxCandidates),
			tagimg.WithCaptionTemplate(cfg.CaptionTemplate),
			tagimg.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		logger.Info("configuration loaded",
			slog.String("config", cfg.Path()),
			slog.String("publisher", cfg.Publisher),
			slog.Any("tags", cfg.Tags),
			slog.Duration("interval", cfg.Interval()))

		if once {
			report := bot.RunCycle(ctx)
			cmd.Println()
			cmd.Printf("%d published, %d failed\n", report.Published(), len(report.Failed()))
			if dryRun {
				cmd.Printf("images written to %s\n", outputDir(cfg))
			}
			return nil
		}
		return bot.Run(ctx, cfg.Interval())
	},
}

func outputDir(cfg *config.Config) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return filepath.Join(config.DataHomePath(), "out")
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&once, "once", "", false, "run a single cycle and exit")
	runCmd.Flags().BoolVarP(&dryRun, "dry-run", "", false, fmt.Sprintf("write images to the output directory instead of publishing (same as publisher: %s)", config.PublisherDir))
}
