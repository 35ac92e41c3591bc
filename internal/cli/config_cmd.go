// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App) *cobra.Command {
	show := func(cmd *cobra.Command, args []string) error {
		_, err := io.WriteString(app.Out, app.Config.String())
		return err
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after the config file, FAQCHAT_* environment
variables and command-line flags have been applied.`,
		Args: cobra.NoArgs,
		RunE: show,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  cobra.NoArgs,
			RunE:  show,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(app.Out, app.ConfigPath)
				return err
			},
		},
	)
	return cmd
}
