package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/younsl/idlesweep/internal/app"
	"github.com/younsl/idlesweep/internal/config"
	"github.com/younsl/idlesweep/internal/handler"
	"github.com/younsl/idlesweep/internal/logging"
	"github.com/younsl/idlesweep/internal/version"
	awsclient "github.com/younsl/idlesweep/pkg/aws"
	"github.com/younsl/idlesweep/pkg/formatter"
	"github.com/younsl/idlesweep/pkg/pricing"
)

// setup resolves configuration and builds an AWS backed App
func setup(cmd *cobra.Command, flags *globalFlags) (*app.App, config.Config, error) {
	cfg, err := flags.resolve(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	log := logging.New(logOptions(cfg)).New("region", cfg.Region)

	a, err := app.NewAWS(cmd.Context(), cfg, log)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to initialize AWS clients: %w", err)
	}
	return a, cfg, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFindCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find",
		Short: "Find wasteful resources, tag them with a deadline and notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}

			started := time.Now()
			s := startSpinner(fmt.Sprintf("Analyzing EC2 resources in %s ...", cfg.Region))
			result, err := a.FindWaste(cmd.Context())
			if err != nil {
				s.Stop()
				return err
			}
			stopSpinner(s, fmt.Sprintf("[%d resources found]", result.Findings.Count()), started)

			if flags.output == outputJSON {
				return printJSON(handler.NewFindBody(result))
			}
			formatter.PrintFindings(os.Stdout, result)
			formatter.PrintTimestamp(os.Stdout, started, time.Since(started))
			return nil
		},
	}
}

func newReapCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Delete resources whose deadline has passed and record the savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}

			started := time.Now()
			s := startSpinner(fmt.Sprintf("Reaping expired resources in %s ...", cfg.Region))
			result, err := a.Reap(cmd.Context())
			if err != nil {
				s.Stop()
				return err
			}
			acted := len(result.Deleted)
			if result.DryRun {
				acted = len(result.Planned)
			}
			stopSpinner(s, fmt.Sprintf("[%d resources expired]", acted), started)

			if flags.output == outputJSON {
				return printJSON(handler.NewReapBody(result))
			}
			formatter.PrintReapResult(os.Stdout, result)
			formatter.PrintTimestamp(os.Stdout, started, time.Since(started))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would be deleted without deleting anything")
	return cmd
}

func newSavingsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "savings",
		Short: "Summarize the cumulative savings recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}

			started := time.Now()
			s := startSpinner(fmt.Sprintf("Scanning ledger %s ...", cfg.LedgerTable))
			stats, err := a.Savings(cmd.Context())
			if err != nil {
				s.Stop()
				return err
			}
			stopSpinner(s, fmt.Sprintf("[%d deletions recorded]", stats.TotalResourcesDeleted), started)

			if flags.output == outputJSON {
				return printJSON(stats)
			}
			formatter.PrintSavings(os.Stdout, stats)
			return nil
		},
	}
}

func newPricesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Compare the configured volume prices with the AWS Pricing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			rows, err := comparePrices(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if flags.output == outputJSON {
				return printJSON(priceRows(rows))
			}
			formatter.PrintPrices(os.Stdout, cfg.Region, rows)
			return nil
		},
	}
}

func comparePrices(ctx context.Context, cfg config.Config) ([]pricing.Comparison, error) {
	if !pricing.IsValidRegion(cfg.Region) {
		return nil, fmt.Errorf("no Pricing API location known for region %s", cfg.Region)
	}
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	s := startSpinner("Fetching prices from the AWS Pricing API ...")
	rows := pricing.NewClientFromConfig(awsCfg).Compare(ctx, cfg.Prices, cfg.Region)
	stopSpinner(s, fmt.Sprintf("[%d volume types checked]", len(rows)), started)
	return rows, nil
}

type priceRow struct {
	VolumeType string  `json:"volume_type"`
	Configured float64 `json:"configured"`
	Live       float64 `json:"live,omitempty"`
	Source     string  `json:"source"`
	Error      string  `json:"error,omitempty"`
}

func priceRows(rows []pricing.Comparison) []priceRow {
	out := make([]priceRow, 0, len(rows))
	for _, r := range rows {
		row := priceRow{
			VolumeType: r.VolumeType,
			Configured: r.Configured,
			Live:       r.Live,
			Source:     string(r.Source),
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		out = append(out, row)
	}
	return out
}

func newVersionCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if flags.output == outputJSON {
				return printJSON(info)
			}
			fmt.Println(info.String())
			return nil
		},
	}
}
