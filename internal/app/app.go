// Package app wires configuration, AWS clients and the sweep processes
// together for the CLI and the Lambda entry point.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/younsl/idlesweep/internal/config"
	"github.com/younsl/idlesweep/internal/finder"
	"github.com/younsl/idlesweep/internal/handler"
	"github.com/younsl/idlesweep/internal/ledger"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/internal/reaper"
	"github.com/younsl/idlesweep/internal/report"
	awsclient "github.com/younsl/idlesweep/pkg/aws"
)

// Process names accepted by Run
const (
	ProcessFinder  = "finder"
	ProcessReaper  = "reaper"
	ProcessSavings = "savings"
)

// Inventory is everything the finder and the reaper need from EC2
type Inventory interface {
	finder.Inventory
	reaper.Inventory
}

// Deps are the external collaborators of a sweep. Metrics may be nil.
type Deps struct {
	Inventory Inventory
	Notifier  report.Notifier
	Ledger    ledger.Store
	Metrics   report.MetricsSink
}

// App runs sweep processes against one region
type App struct {
	cfg  config.Config
	deps Deps
	log  log15.Logger
	now  func() time.Time
}

// New creates an App from explicit collaborators
func New(cfg config.Config, deps Deps, log log15.Logger) *App {
	return &App{cfg: cfg, deps: deps, log: log, now: time.Now}
}

// SetClock replaces the clock used to date runs
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

// NewAWS creates an App backed by the AWS services named in cfg
func NewAWS(ctx context.Context, cfg config.Config, log log15.Logger) (*App, error) {
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Inventory: awsclient.NewEC2InventoryFromConfig(awsCfg),
		Notifier:  awsclient.NewSNSNotifierFromConfig(awsCfg, cfg.TopicARN),
		Ledger:    awsclient.NewDynamoLedgerFromConfig(awsCfg, cfg.LedgerTable),
	}
	if cfg.MetricsNamespace != "" {
		deps.Metrics = awsclient.NewCloudWatchMetricsFromConfig(awsCfg, cfg.MetricsNamespace)
	}
	return New(cfg, deps, log), nil
}

// Config returns the resolved configuration
func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) reporter() *report.Reporter {
	return report.NewReporter(a.deps.Notifier, a.deps.Metrics, a.cfg.GraceDays, a.log)
}

// Finder builds a finder for the configured account
func (a *App) Finder() *finder.Finder {
	return finder.New(a.deps.Inventory, a.reporter(), finder.Options{
		Tag:             a.cfg.Tag(),
		GraceDays:       a.cfg.GraceDays,
		SnapshotAgeDays: a.cfg.SnapshotAgeDays,
		Prices:          a.cfg.Prices,
		Now:             a.now,
	}, a.log)
}

// Reaper builds a reaper for the configured account
func (a *App) Reaper() *reaper.Reaper {
	return reaper.New(a.deps.Inventory, a.deps.Ledger, a.reporter(), reaper.Options{
		Tag:    a.cfg.Tag(),
		DryRun: a.cfg.DryRun,
		Prices: a.cfg.Prices,
		Now:    a.now,
	}, a.log)
}

// Aggregator builds a savings aggregator over the ledger
func (a *App) Aggregator() *ledger.Aggregator {
	return ledger.NewAggregator(a.deps.Ledger, a.log)
}

// FindWaste runs the finder
func (a *App) FindWaste(ctx context.Context) (*models.FindResult, error) {
	return a.Finder().Run(ctx)
}

// Reap runs the reaper
func (a *App) Reap(ctx context.Context) (*models.ReapResult, error) {
	return a.Reaper().Run(ctx)
}

// Savings aggregates the ledger
func (a *App) Savings(ctx context.Context) (ledger.Stats, error) {
	return a.Aggregator().Query(ctx)
}

// Run executes process and returns its response body
func (a *App) Run(ctx context.Context, process string) (interface{}, error) {
	switch process {
	case ProcessFinder:
		result, err := a.FindWaste(ctx)
		if err != nil {
			return nil, err
		}
		return handler.NewFindBody(result), nil
	case ProcessReaper:
		result, err := a.Reap(ctx)
		if err != nil {
			return nil, err
		}
		return handler.NewReapBody(result), nil
	case ProcessSavings:
		return a.Savings(ctx)
	default:
		return nil, fmt.Errorf("unknown process %q (expected %s, %s or %s)", process, ProcessFinder, ProcessReaper, ProcessSavings)
	}
}

// Handle runs process and wraps the outcome into a trigger response
func (a *App) Handle(ctx context.Context, process string) handler.Response {
	return handler.Invoke(ctx, a.log.New("process", process), func(ctx context.Context) (interface{}, error) {
		return a.Run(ctx, process)
	})
}
