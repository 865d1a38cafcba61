package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/pii"
)

// Pipeline scrubs PII from dataset files. Input and output share a format:
// records are read in batches, transformed by a worker pool, and written back
// in input order with the text field replaced.
type Pipeline struct {
	engine *pii.Engine
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a batch pipeline around an engine.
func NewPipeline(engine *pii.Engine, config *Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.ProgressReport <= 0 {
		config.ProgressReport = 1000
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Minute
	}
	return &Pipeline{
		engine: engine,
		config: config,
		logger: logger,
	}
}

// recordReader yields one batch of records per call; an empty batch means EOF.
type recordReader func() ([]TextRecord, error)

// recordWriter persists scrubbed records in order.
type recordWriter interface {
	Write(record TextRecord) error
	Close() error
}

// ProcessFile scrubs inputPath into outputPath. The output format follows the
// input file's extension.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	policy, err := pii.ParsePolicy(p.config.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid policy %q: %w", p.config.Policy, err)
	}

	format := DetectFileFormat(inputPath)
	p.logger.Info("Starting batch pipeline",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.String("policy", policy.String()),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount))

	input, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer output.Close()

	var readBatch recordReader
	var writer recordWriter
	switch format {
	case FormatCSV:
		readBatch, err = p.csvReader(input)
		if err != nil {
			return nil, err
		}
		writer, err = newCSVWriter(output)
		if err != nil {
			return nil, err
		}
	case FormatJSONL:
		readBatch = p.jsonlReader(input)
		writer = newJSONLWriter(output)
	case FormatParquet:
		readBatch = p.parquetReader(input)
		writer = newParquetWriter(output)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}

	start := time.Now()
	result := &Result{KindCounts: make(map[string]int)}

	if err := p.processBatches(ctx, readBatch, writer, policy, result); err != nil {
		return result, err
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("failed to finalize output: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Batch pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("scrubbed_ok", result.ScrubbedOK),
		zap.Int64("failed", result.Failed),
		zap.Int64("total_findings", result.TotalFindings),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// processBatches drives the read-scrub-write loop.
func (p *Pipeline) processBatches(ctx context.Context, readBatch recordReader, writer recordWriter, policy pii.Policy, result *Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		scrubbed, findings := p.scrubBatch(batch, policy, result)

		for _, record := range scrubbed {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}

		result.TotalRecords += int64(len(batch))
		result.TotalFindings += findings

		if result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.logger.Info("Processing progress",
				zap.Int64("records_processed", result.TotalRecords),
				zap.Int64("findings", result.TotalFindings))
		}
	}
	return nil
}

// scrubBatch transforms one batch with a worker pool. Output order matches
// input order: workers write into a results slice by index. Records the engine
// rejects pass through unmodified and are counted as failed.
func (p *Pipeline) scrubBatch(batch []TextRecord, policy pii.Policy, result *Result) ([]TextRecord, int64) {
	scrubbed := make([]TextRecord, len(batch))
	outcomes := make([]*pii.Result, len(batch))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.config.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				record := batch[i]
				res, err := p.engine.Transform(record.Text, p.config.Fields, policy)
				if err != nil {
					p.logger.Warn("Record transformation failed",
						zap.String("record_id", record.ID),
						zap.Error(err))
					scrubbed[i] = record
					continue
				}
				scrubbed[i] = TextRecord{ID: record.ID, Text: res.Text}
				outcomes[i] = res
			}
		}()
	}
	for i := range batch {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var findings int64
	for i, res := range outcomes {
		if res == nil {
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("record %s: transformation failed", batch[i].ID))
			continue
		}
		result.ScrubbedOK++
		findings += int64(len(res.Records))
		for _, record := range res.Records {
			result.KindCounts[record.Kind]++
		}
	}
	return scrubbed, findings
}

// csvReader reads (id, text) rows after a header line.
func (p *Pipeline) csvReader(file io.Reader) (recordReader, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Debug("CSV header detected", zap.Strings("columns", header))

	return func() ([]TextRecord, error) {
		var batch []TextRecord
		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}
			batch = append(batch, TextRecord{ID: row[0], Text: row[1]})
		}
		return batch, nil
	}, nil
}

// jsonlReader reads one JSON object per line.
func (p *Pipeline) jsonlReader(file io.Reader) recordReader {
	decoder := json.NewDecoder(file)
	return func() ([]TextRecord, error) {
		var batch []TextRecord
		for len(batch) < p.config.BatchSize {
			var record TextRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				return batch, fmt.Errorf("failed to decode JSON record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}
}

func (p *Pipeline) parquetReader(file *os.File) recordReader {
	reader := parquet.NewReader(file)
	return func() ([]TextRecord, error) {
		var batch []TextRecord
		for len(batch) < p.config.BatchSize {
			var record TextRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				return batch, fmt.Errorf("failed to read Parquet record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}
}

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(file io.Writer) (*csvWriter, error) {
	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "text"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &csvWriter{w: w}, nil
}

func (c *csvWriter) Write(record TextRecord) error {
	return c.w.Write([]string{record.ID, record.Text})
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

type jsonlWriter struct {
	enc *json.Encoder
}

func newJSONLWriter(file io.Writer) *jsonlWriter {
	return &jsonlWriter{enc: json.NewEncoder(file)}
}

func (j *jsonlWriter) Write(record TextRecord) error {
	return j.enc.Encode(record)
}

func (j *jsonlWriter) Close() error {
	return nil
}

type parquetWriter struct {
	w *parquet.Writer
}

func newParquetWriter(file io.Writer) *parquetWriter {
	return &parquetWriter{w: parquet.NewWriter(file)}
}

func (p *parquetWriter) Write(record TextRecord) error {
	return p.w.Write(&record)
}

func (p *parquetWriter) Close() error {
	return p.w.Close()
}
