package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/parking"
)

type nearbyOptions struct {
	lat, lon float64
	mode     string
	banded   bool
	timeout  time.Duration
}

func newNearbyCommand(root *rootOptions) *cobra.Command {
	opts := &nearbyOptions{}

	cmd := &cobra.Command{
		Use:   "nearby [query]",
		Short: "Find on-street parking near an address or coordinate",
		Long: `Run a nearby parking search and print the result as JSON.

Examples:
  parkfinder nearby "Melbourne Central"
  parkfinder nearby --lat -37.8136 --lon 144.9631 --mode bay
  parkfinder nearby "Queen Victoria Market" --bands`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query(args, cmd.Flags().Changed("lat"))
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := stderrLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			svc, err := buildServices(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			if opts.banded {
				res, err := svc.parking.Bands(ctx, q)
				if err != nil {
					return err
				}
				return writeIndented(cmd.OutOrStdout(), res)
			}
			resp, err := svc.parking.Nearby(ctx, q)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "latitude of the destination")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "longitude of the destination")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "result mode: zone or bay (default: zone, or bay with --bands)")
	cmd.Flags().BoolVar(&opts.banded, "bands", false, "print bays grouped into walking-distance bands")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall search timeout")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	return cmd
}

func (o *nearbyOptions) query(args []string, hasCenter bool) (parking.Query, error) {
	fallback := parking.ModeZone
	if o.banded {
		fallback = parking.ModeBay
	}
	mode, err := parking.ParseMode(o.mode, fallback)
	if err != nil {
		return parking.Query{}, err
	}

	q := parking.Query{Text: strings.TrimSpace(strings.Join(args, " ")), Mode: mode}
	if hasCenter {
		center := geo.Point{Lat: o.lat, Lon: o.lon}
		if !center.Valid() {
			return parking.Query{}, fmt.Errorf("invalid coordinate %s", center)
		}
		q.Center = &center
	}
	if q.Center == nil && q.Text == "" {
		return parking.Query{}, fmt.Errorf("provide a query, or --lat and --lon")
	}
	return q, nil
}
