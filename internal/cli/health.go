// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/faqchat/internal/ui/chat"
	"github.com/jeranaias/faqchat/internal/ui/styles"
)

var errUnhealthy = errors.New("backend not reachable")

func newHealthCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Long: `Probe the health endpoint once. Exits with status 1 when the backend
does not answer with a 2xx status within the health timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			url := cfg.HealthURL()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
			defer cancel()

			start := time.Now()
			err := app.Client.CheckHealth(ctx, url, cfg.HealthTimeout())
			elapsed := time.Since(start).Round(time.Millisecond)

			if err != nil {
				app.Logger.Warn().Err(err).Str("url", url).Msg("health check failed")
				fmt.Fprintln(app.Err, errorStyle.Render(styles.StatusIndicators.Error+" "+chat.HealthNotice(url, err, cfg.HealthTimeout())))
				return reported(errUnhealthy)
			}

			fmt.Fprintf(app.Out, "%s backend reachable at %s (%s)\n",
				okStyle.Render(styles.StatusIndicators.OK), url, elapsed)
			return nil
		},
	}
}
