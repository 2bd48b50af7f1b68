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
	"errors"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/k1LoW/tagimg/config"
	"github.com/k1LoW/tagimg/x"
	"github.com/spf13/cobra"
)

// X credentials are usually longer than this.
const minCredentialLength = 25

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check tagimg environment and configuration",
	Long:  `Check tagimg environment and configuration to ensure everything is set up correctly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		bold := color.New(color.Bold)

		allOK := true

		// 1. Check configuration file
		cmd.Print("🔧 Checking configuration file ... ")
		cfg, err := config.Load(profile)
		if err != nil {
			red.Println("✗ CONFIG ERROR")
			cmd.Printf("   Error loading config: %v\n", err)
			cmd.Println()
			showSetupHelp(cmd)
			return nil
		}
		if cfg.Path() == "" {
			yellow.Println("⚠️ NOT FOUND")
			cmd.Printf("   Using defaults and environment variables (expected at: %s)\n", config.ConfigHomePath())
		} else {
			green.Println("✓ OK")
			cmd.Printf("   Configuration file: %s\n", cfg.Path())
		}

		cmd.Print("📋 Checking configuration values ... ")
		if err := cfg.Validate(); err != nil {
			red.Println("✗ INVALID")
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					cmd.Printf("   - %s\n", p)
				}
			} else {
				cmd.Printf("   %v\n", err)
			}
			allOK = false
		} else {
			green.Println("✓ OK")
			cmd.Printf("   Tags: %v, every %s, publisher: %s\n", cfg.Tags, cfg.Interval(), cfg.Publisher)
		}

		// 2. Check font
		cmd.Print("🔤 Checking font ... ")
		if _, err := newRenderer(cfg); err != nil {
			red.Println("✗ FAILED")
			cmd.Printf("   %v\n", err)
			allOK = false
		} else {
			green.Println("✓ OK")
			cmd.Printf("   Font: %s (%dpx)\n", cfg.FontPath, cfg.FontSize)
		}

		// 3. Check credentials
		cmd.Println("🔑 Checking credentials ...")
		for _, c := range []struct {
			name  string
			value string
		}{
			{"X_CLIENT_ID", cfg.ClientID},
			{"X_CLIENT_SECRET", cfg.ClientSecret},
			{"X_BEARER_TOKEN", cfg.BearerToken},
		} {
			cmd.Printf("   %s: ", c.name)
			switch {
			case c.value == "":
				yellow.Println("not set")
			case len(c.value) < minCredentialLength:
				red.Printf("%s (%d chars) looks too short\n", mask(c.value), len(c.value))
				allOK = false
			default:
				green.Printf("%s (%d chars)\n", mask(c.value), len(c.value))
			}
		}
		if cfg.ClientID == "" && cfg.BearerToken == "" {
			allOK = false
		}

		if !allOK {
			cmd.Println()
			showSetupHelp(cmd)
			return nil
		}

		// 4. Check login
		if cfg.ClientID != "" {
			cmd.Print("🔐 Checking authentication ... ")
			tokenPath := x.TokenPath(profile)
			if _, err := os.Stat(tokenPath); err != nil {
				red.Println("✗ NOT LOGGED IN")
				cmd.Printf("   Token not found at: %s\n", tokenPath)
				yellow.Println("   tagimg login")
				allOK = false
			} else {
				client, err := x.New(ctx,
					x.WithCredentials(cfg.ClientID, cfg.ClientSecret),
					x.WithProfile(profile),
				)
				var me *x.User
				if err == nil {
					me, err = client.Me(ctx)
				}
				if err != nil {
					red.Println("✗ AUTH FAILED")
					cmd.Printf("   Authentication error: %v\n", err)
					if errors.Is(err, x.ErrUnauthorized) || errors.Is(err, x.ErrLoginRequired) {
						cmd.Println("   The token may be revoked or the app permissions may have changed. Try:")
						yellow.Println("   tagimg login")
					}
					allOK = false
				} else {
					green.Println("✓ OK")
					cmd.Printf("   Logged in as @%s\n", me.Username)
				}
			}
		}

		// Final message
		cmd.Println()
		if allOK {
			bold.Printf("🎉 ")
			green.Print("All checks passed! You are ready to run tagimg")
			bold.Println(".")
			cmd.Println()
			cmd.Println("Try a single cycle without publishing:")
			yellow.Println("  tagimg run --once --dry-run")
		} else {
			red.Println("⚠️  Setup is incomplete.")
			cmd.Println("\nPlease fix the issues above to use tagimg properly.")
		}
		return nil
	},
}

func mask(v string) string {
	if len(v) <= 8 {
		return "********"
	}
	return v[:8] + "..."
}

func showSetupHelp(cmd *cobra.Command) {
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	bold.Println("📚 Setup Guide")
	cmd.Println()
	cmd.Println("To use tagimg, you need an X app with OAuth 2.0 enabled.")
	cmd.Println()
	bold.Println("Follow these steps:")
	cmd.Println()
	bold.Print("1. ")
	cmd.Println("Create (or reuse) a project and an app at the X Developer Portal")
	cyan.Println("   https://developer.x.com/en/portal/dashboard")
	cmd.Println()
	bold.Print("2. ")
	cmd.Println("Enable OAuth 2.0 in the user authentication settings")
	cmd.Println("   - Type of App: Native App")
	cmd.Println("   - App permissions: Read and write")
	cmd.Printf("   - Callback URI: http://%s/\n", x.DefaultCallbackAddr)
	cmd.Println()
	bold.Print("3. ")
	cmd.Println("Set the client ID (and secret, for confidential clients) in the config file or environment")
	yellow.Println("   X_CLIENT_ID=... X_CLIENT_SECRET=...")
	cmd.Printf("   Config file: %s\n", filepath.Join(config.ConfigHomePath(), "config.yml"))
	cmd.Println()
	bold.Print("4. ")
	cmd.Println("Login and check again")
	yellow.Println("   tagimg login")
	yellow.Println("   tagimg doctor")
	cmd.Println()
	bold.Println("Other settings (font, colors, tags, interval) can be checked with:")
	cyan.Println(`   tagimg render "Hello, world" --out preview.png`)
	cmd.Println()
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
