package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/common/database"
	"cropwatch-anomaly/internal/common/logger"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/evaluation"
	"cropwatch-anomaly/internal/generator"
	"cropwatch-anomaly/internal/harness"
	"cropwatch-anomaly/internal/repository"
)

var (
	plotID       string
	readings     int
	anomalyRatio float64
	seed         int64
	store        string
	xlsxPath     string
	jsonOutput   bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "cropwatch-evaluate",
	Short: "Evaluate the anomaly detector against a labelled synthetic dataset",
	Long: `Generates a synthetic dataset with injected anomalies, runs every reading
through the detection pipeline and prints precision, recall, F1 and the
confusion matrix.`,
	SilenceUsage: true,
	RunE:         runEvaluate,
}

func init() {
	rootCmd.Flags().StringVar(&plotID, "plot-id", "eval-plot", "Plot id for the generated readings")
	rootCmd.Flags().IntVar(&readings, "readings", 100, "Number of generation steps")
	rootCmd.Flags().Float64Var(&anomalyRatio, "anomaly-ratio", 0.1, "Fraction of steps that inject an anomaly (0-1)")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	rootCmd.Flags().StringVar(&store, "store", "memory", "Reading store: memory or postgres")
	rootCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an Excel report to this path")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print metrics as JSON instead of the text report")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	log, err := logger.NewLogger(logLevel, "console", "cropwatch-evaluate")
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var readingStore repository.ReadingStore
	var eventStore repository.AnomalyEventStore

	switch store {
	case "memory":
		readingStore = repository.NewMemoryReadingStore()
		eventStore = repository.NewMemoryAnomalyEventStore()
	case "postgres":
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return err
		}
		readingStore = repository.NewReadingRepository(db, log)
		eventStore = repository.NewAnomalyEventRepository(db, log)
	default:
		return fmt.Errorf("unknown store %q (expected memory or postgres)", store)
	}

	var opts []generator.Option
	if seed != 0 {
		opts = append(opts, generator.WithSeed(seed))
	}

	runner := harness.NewRunner(generator.NewGenerator(opts...), readingStore, eventStore, log)
	result, err := runner.Run(ctx, plotID, readings, anomalyRatio)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Metrics); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	} else {
		fmt.Fprint(out, evaluation.FormatReport(result.Metrics))
	}

	if xlsxPath != "" {
		data, err := evaluation.GenerateExcelReport(result.Metrics, result.Outcomes)
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write excel report: %w", err)
		}
		log.Info("Excel report written", zap.String("path", xlsxPath))
	}

	return nil
}
