package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
)

func newSuggestCommand(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Print ranked location suggestions for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := stderrLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := buildServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.geocoding.Suggest(ctx, strings.Join(args, " "))
			if err != nil && !errors.Is(err, geocoding.ErrNoResults) {
				return err
			}
			if results == nil {
				results = []suggest.Suggestion{}
			}
			return writeIndented(cmd.OutOrStdout(), map[string]any{
				"suggestions": results,
				"attribution": svc.geocoding.Attribution(),
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall lookup timeout")
	return cmd
}
