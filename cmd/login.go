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
	"github.com/k1LoW/tagimg/config"
	"github.com/k1LoW/tagimg/x"
	"github.com/spf13/cobra"
)

var callbackAddr string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "login to X",
	Long:  `login to X in the browser and cache the token for the bot.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		logger, closeLogger, err := newLogger()
		if err != nil {
			return err
		}
		defer closeLogger()
		if err := x.Login(cmd.Context(),
			x.WithCredentials(cfg.ClientID, cfg.ClientSecret),
			x.WithProfile(profile),
			x.WithCallbackAddr(callbackAddr),
			x.WithLogger(logger),
		); err != nil {
			return err
		}
		cmd.Printf("token saved to %s\n", x.TokenPath(profile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&callbackAddr, "callback-addr", "", x.DefaultCallbackAddr, "listen address of the OAuth callback server")
}
