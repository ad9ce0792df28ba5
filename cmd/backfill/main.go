package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/supportiq/backend/internal/analysis"
	"github.com/supportiq/backend/internal/llm"
	"github.com/supportiq/backend/internal/metrics"
	"github.com/supportiq/backend/internal/storage/models"
	"github.com/supportiq/backend/internal/storage/sqlite"
	"github.com/supportiq/backend/pkg/config"
	appLogger "github.com/supportiq/backend/pkg/logger"
)

// backfill re-runs the analysis pipeline over stored calls that have a
// transcript but no analytics row, oldest first. With --force it reprocesses
// already-analyzed calls for a tenant, discarding their previous analytics
// and tickets. Aggregates (profiles, feedback, rollups) are never rewound.
func main() {
	var (
		dryRun      = flag.Bool("dry-run", false, "list candidate calls without processing them")
		limit       = flag.Int("limit", 100, "maximum number of calls to process")
		tenant      = flag.String("tenant", "", "restrict to a single tenant")
		force       = flag.Bool("force", false, "reprocess already-analyzed calls (requires --tenant)")
		concurrency = flag.Int("concurrency", 0, "parallel pipeline workers (default from config)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	if *force && *tenant == "" {
		fmt.Println("--force requires --tenant")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		*concurrency = cfg.Pipeline.Workers
	}

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calls, err := listCandidates(ctx, sqliteClient, *tenant, *force, *limit)
	if err != nil {
		appLogger.Fatal("Failed to list candidate calls", zap.Error(err))
	}

	if len(calls) == 0 {
		fmt.Println("No calls to process")
		return
	}

	if *dryRun {
		fmt.Printf("Would process %d calls:\n", len(calls))
		for _, call := range calls {
			fmt.Printf("  %s  tenant=%s  started=%s\n",
				call.ID, call.TenantID, call.StartedAt.UTC().Format(time.RFC3339))
		}
		return
	}

	llmClient := llm.NewClient(cfg.LLM)
	orchestrator := analysis.NewOrchestrator(llmClient, analysis.OrchestratorConfig{
		TriageMaxTokens: cfg.LLM.TriageMaxTokens,
		DeepMaxTokens:   cfg.LLM.DeepMaxTokens,
		CallTimeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	pipeline := analysis.NewPipeline(orchestrator, sqliteClient, cfg.LLM.Model)

	appLogger.Info("Starting backfill",
		zap.Int("calls", len(calls)),
		zap.Int("concurrency", *concurrency),
		zap.Bool("force", *force))

	var processed, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	for _, call := range calls {
		call := call
		g.Go(func() error {
			if gctx.Err() != nil {
				skipped.Add(1)
				return nil
			}

			transcript, err := sqliteClient.GetTranscript(gctx, call.ID)
			if err != nil {
				appLogger.Error("Failed to load transcript",
					zap.String("call_id", call.ID), zap.Error(err))
				failed.Add(1)
				return nil
			}
			if transcript == nil {
				skipped.Add(1)
				return nil
			}

			if *force {
				if err := sqliteClient.DeleteAnalysisArtifacts(gctx, call.ID); err != nil {
					appLogger.Error("Failed to clear previous analysis",
						zap.String("call_id", call.ID), zap.Error(err))
					failed.Add(1)
					return nil
				}
			}

			result, err := pipeline.ProcessCall(gctx, &call, transcript)
			if err != nil {
				if errors.Is(err, analysis.ErrTranscriptTooShort) {
					skipped.Add(1)
					return nil
				}
				appLogger.Error("Pipeline failed",
					zap.String("call_id", call.ID), zap.Error(err))
				failed.Add(1)
				return nil
			}

			if len(result.SinkErrors) > 0 {
				appLogger.Warn("Call processed with sink failures",
					zap.String("call_id", call.ID),
					zap.Int("sink_errors", len(result.SinkErrors)))
			}
			processed.Add(1)
			return nil
		})
	}

	g.Wait()

	fmt.Printf("Backfill complete: %d processed, %d failed, %d skipped\n",
		processed.Load(), failed.Load(), skipped.Load())
}

func listCandidates(ctx context.Context, store *sqlite.Client, tenant string, force bool, limit int) ([]models.CallRecord, error) {
	if force {
		return store.ListCalls(ctx, tenant, models.CallStatusCompleted, limit, 0)
	}
	return store.ListCallsWithoutAnalytics(ctx, tenant, limit)
}
