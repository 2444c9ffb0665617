package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/younsl/idlesweep/internal/app"
	"github.com/younsl/idlesweep/internal/config"
	"github.com/younsl/idlesweep/internal/handler"
	"github.com/younsl/idlesweep/internal/logging"
)

// EnvProcess selects the process a function runs when the event names none
const EnvProcess = "SWEEP_PROCESS"

// event is the optional trigger payload. Scheduled events carry no process
// field and fall back to SWEEP_PROCESS.
type event struct {
	Process string `json:"process"`
}

func processFor(raw json.RawMessage, fallback string) string {
	var ev event
	if len(raw) > 0 && json.Unmarshal(raw, &ev) == nil && strings.TrimSpace(ev.Process) != "" {
		return strings.TrimSpace(ev.Process)
	}
	return fallback
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err == nil {
		err = cfg.Validate()
	}
	if os.Getenv(logging.EnvLogFormat) == "" {
		cfg.LogFormat = logging.FormatJSON
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Crit("Invalid configuration", "err", err)
		os.Exit(1)
	}

	a, err := app.NewAWS(ctx, cfg, log.New("region", cfg.Region))
	if err != nil {
		log.Crit("Failed to initialize AWS clients", "err", err)
		os.Exit(1)
	}

	defaultProcess := strings.TrimSpace(os.Getenv(EnvProcess))
	log.Info("Function ready", "default_process", defaultProcess, "dry_run", cfg.DryRun)

	lambda.Start(func(ctx context.Context, raw json.RawMessage) (handler.Response, error) {
		process := processFor(raw, defaultProcess)
		return a.Handle(ctx, process), nil
	})
}
