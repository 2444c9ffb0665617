package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/younsl/idlesweep/internal/config"
	"github.com/younsl/idlesweep/internal/logging"
	"github.com/younsl/idlesweep/internal/version"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	region     string
	dryRun     bool
	graceDays  int
	logLevel   string
	output     string
}

// startSpinner creates and starts a spinner on stderr with the given message
func startSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 200*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	return s
}

// stopSpinner stops s, leaving a completion line with the elapsed time
func stopSpinner(s *spinner.Spinner, summary string, started time.Time) {
	s.FinalMSG = fmt.Sprintf("✓ %s - Completed in %.2f seconds\n", summary, time.Since(started).Seconds())
	s.Stop()
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   version.Name,
		Short: "Flag, reap and account for idle EBS volumes, snapshots and Elastic IPs",
		Long: `idlesweep finds wasteful EC2 storage and addresses, tags them with a
deletion deadline, deletes them once the grace period has passed (taking a
safety snapshot of every volume first) and records each deletion in a
savings ledger.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", fmt.Sprintf("TOML config file (default: $%s)", config.EnvConfigPath))
	pf.StringVarP(&flags.region, "region", "r", "", fmt.Sprintf("AWS region (default: $%s or %s)", config.EnvRegion, config.DefaultRegion))
	pf.IntVar(&flags.graceDays, "grace-days", 0, fmt.Sprintf("Days between flagging and deletion (default: %d)", config.DefaultGraceDays))
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&flags.output, "output", "o", outputTable, "Output format: table or json")

	rootCmd.AddCommand(
		newFindCmd(flags),
		newReapCmd(flags),
		newSavingsCmd(flags),
		newPricesCmd(flags),
		newVersionCmd(flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// resolve loads the configuration and applies the flags the user set
func (f *globalFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	if f.output != outputTable && f.output != outputJSON {
		return config.Config{}, fmt.Errorf("unsupported output %q (expected %s or %s)", f.output, outputTable, outputJSON)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("region") {
		cfg.Region = f.region
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if changed("grace-days") {
		cfg.GraceDays = f.graceDays
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func logOptions(cfg config.Config) logging.Options {
	return logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	}
}
