package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/batch"
	"github.com/veiltext/veiltext/internal/config"
	"github.com/veiltext/veiltext/internal/logger"
	"github.com/veiltext/veiltext/internal/pii"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, JSONL, or Parquet)")
		outputFile = flag.String("output", "", "Output file (defaults to <input>.scrubbed.<ext>)")
		fields     = flag.String("fields", "", "Comma-separated PII kinds (defaults to all)")
		policy     = flag.String("policy", "", "Transformation policy: REDACT, ANONYMIZE, or HASH")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for processing")
		workers    = flag.Int("workers", 4, "Number of worker goroutines")
	)
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --policy ANONYMIZE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dataset.jsonl --fields EMAIL,SSN --workers 8\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting VeilText batch scrubber",
		zap.String("input", *inputFile))

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("input", *inputFile))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	batchConfig := &batch.Config{
		BatchSize:   *batchSize,
		WorkerCount: *workers,
		Fields:      cfg.Engine.DefaultFields,
		Policy:      cfg.Engine.DefaultPolicy,
	}
	if *fields != "" {
		batchConfig.Fields = strings.Split(*fields, ",")
	}
	if *policy != "" {
		batchConfig.Policy = *policy
	}

	output := *outputFile
	if output == "" {
		output = defaultOutputPath(*inputFile)
	}

	engine := pii.NewEngine(pii.NewRegistry(), pii.Config{
		Filler: cfg.Engine.RedactFiller,
	}, log.WithComponent("engine").Logger)

	pipeline := batch.NewPipeline(engine, batchConfig, log.WithComponent("batch").Logger)

	result, err := pipeline.ProcessFile(ctx, *inputFile, output)
	if err != nil {
		log.Fatal("Batch processing failed", zap.Error(err))
	}

	log.Info("Dataset scrubbing completed",
		zap.String("output", output),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("scrubbed_ok", result.ScrubbedOK),
		zap.Int64("failed", result.Failed),
		zap.Int64("total_findings", result.TotalFindings),
		zap.Any("kind_counts", result.KindCounts),
		zap.Duration("duration", result.Duration),
		zap.Float64("records_per_second",
			float64(result.TotalRecords)/result.Duration.Seconds()))

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}
}

// defaultOutputPath inserts ".scrubbed" before the input file's extension.
func defaultOutputPath(input string) string {
	if idx := strings.LastIndex(input, "."); idx > 0 {
		return input[:idx] + ".scrubbed" + input[idx:]
	}
	return input + ".scrubbed"
}
