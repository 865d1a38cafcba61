package batch

import (
	"strings"
	"time"
)

// TextRecord is a single record of an input dataset. CSV inputs carry the
// columns (id, text); JSONL and Parquet inputs carry the same two fields.
type TextRecord struct {
	ID   string `csv:"id" parquet:"id" json:"id"`
	Text string `csv:"text" parquet:"text" json:"text"`
}

// Result summarizes one pipeline run.
type Result struct {
	TotalRecords  int64          `json:"total_records"`
	ScrubbedOK    int64          `json:"scrubbed_ok"`
	Failed        int64          `json:"failed"`
	TotalFindings int64          `json:"total_findings"`
	KindCounts    map[string]int `json:"kind_counts"`
	Duration      time.Duration  `json:"duration"`
	Errors        []string       `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration.
type Config struct {
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	WorkerCount    int           `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	Fields         []string      `yaml:"fields" mapstructure:"fields"`                   // all kinds
	Policy         string        `yaml:"policy" mapstructure:"policy"`                   // REDACT
	ProgressReport int           `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`                 // 30m
}

// FileFormat represents supported file formats.
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatJSONL   FileFormat = "jsonl"
	FormatParquet FileFormat = "parquet"
)

// DetectFileFormat detects file format from extension.
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	case strings.HasSuffix(filename, ".jsonl") || strings.HasSuffix(filename, ".json"):
		return FormatJSONL
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	default:
		return FormatCSV
	}
}
