package main

import (
	"fmt"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/config"
	"github.com/speedwagon-io/xrgimon/internal/timestamp"
	"github.com/speedwagon-io/xrgimon/internal/window"
	"github.com/spf13/cobra"
)

type windowOptions struct {
	preset    string
	year      string
	start     string
	end       string
	now       string
	firstCall string
	location  string
}

func newWindowCmd() *cobra.Command {
	opts := windowOptions{}

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print the start and end a preset resolves to",
		Example: `  xrgimon window --preset last7days
  xrgimon window --preset year --year 2023
  xrgimon window --preset custom --start 2024-01-01 --end 2024-02-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := resolveWindow(opts)
			if err != nil {
				return err
			}
			start, end := w.Encode()
			fmt.Fprintf(cmd.OutOrStdout(), "start=%s\nend=%s\n", start, end)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "last7days", "last7days, last183days, last365days, since_first_call, year or custom")
	cmd.Flags().StringVar(&opts.year, "year", "", "calendar year for --preset year")
	cmd.Flags().StringVar(&opts.start, "start", "", "start for --preset custom")
	cmd.Flags().StringVar(&opts.end, "end", "", "end for --preset custom")
	cmd.Flags().StringVar(&opts.now, "now", "", "evaluate as of this time instead of the clock")
	cmd.Flags().StringVar(&opts.firstCall, "first-call", "2010-01-01", "first call date of the unit")
	cmd.Flags().StringVar(&opts.location, "location", "UTC", "time zone")

	return cmd
}

func resolveWindow(opts windowOptions) (window.TimeWindow, error) {
	wc := config.WindowConfig{FirstCall: opts.firstCall, Location: opts.location}

	loc, err := wc.Zone()
	if err != nil {
		return window.TimeWindow{}, err
	}
	firstCall, err := wc.FirstCallAt()
	if err != nil {
		return window.TimeWindow{}, err
	}

	now := time.Now().In(loc)
	if opts.now != "" {
		now, err = timestamp.New(loc).Normalize(timestamp.FromString(opts.now))
		if err != nil {
			return window.TimeWindow{}, fmt.Errorf("failed to parse --now %q: %w", opts.now, err)
		}
	}

	preset, err := window.ParsePreset(opts.preset, opts.year, opts.start, opts.end, loc)
	if err != nil {
		return window.TimeWindow{}, err
	}

	return window.NewResolver(firstCall, loc).Resolve(preset, now)
}
