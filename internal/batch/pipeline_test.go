package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/veiltext/veiltext/internal/pii"
)

func newTestPipeline(cfg *Config) *Pipeline {
	engine := pii.NewEngine(pii.NewRegistry(), pii.Config{}, zap.NewNop())
	return NewPipeline(engine, cfg, zap.NewNop())
}

func TestDetectFileFormat(t *testing.T) {
	cases := map[string]FileFormat{
		"data.csv":     FormatCSV,
		"data.jsonl":   FormatJSONL,
		"data.json":    FormatJSONL,
		"data.parquet": FormatParquet,
		"data.txt":     FormatCSV,
	}
	for name, want := range cases {
		if got := DetectFileFormat(name); got != want {
			t.Errorf("DetectFileFormat(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestProcessFileCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.csv")

	content := "id,text\n" +
		"r1,contact alice@example.com today\n" +
		"r2,nothing sensitive\n" +
		"r3,ssn is 123-45-6789\n"
	if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(&Config{
		Fields: []string{"EMAIL", "SSN"},
		Policy: "ANONYMIZE",
	})

	result, err := p.ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if result.TotalRecords != 3 || result.ScrubbedOK != 3 || result.Failed != 0 {
		t.Errorf("Result = %+v, want 3 records all ok", result)
	}
	if result.TotalFindings != 2 {
		t.Errorf("TotalFindings = %d, want 2", result.TotalFindings)
	}
	if result.KindCounts["EMAIL"] != 1 || result.KindCounts["SSN"] != 1 {
		t.Errorf("KindCounts = %v", result.KindCounts)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read output CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Output has %d rows, want header + 3", len(rows))
	}

	// Input order survives the worker pool.
	for i, wantID := range []string{"r1", "r2", "r3"} {
		if rows[i+1][0] != wantID {
			t.Errorf("Row %d ID = %q, want %q", i+1, rows[i+1][0], wantID)
		}
	}
	if rows[1][1] != "contact <EMAIL_1> today" {
		t.Errorf("Row 1 text = %q", rows[1][1])
	}
	if rows[2][1] != "nothing sensitive" {
		t.Errorf("Row 2 text changed: %q", rows[2][1])
	}
	if rows[3][1] != "ssn is <SSN_1>" {
		t.Errorf("Row 3 text = %q", rows[3][1])
	}
}

func TestProcessFileJSONL(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	output := filepath.Join(dir, "out.jsonl")

	var sb strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&sb, `{"id":"r%d","text":"mail user%d@host.io"}`+"\n", i, i)
	}
	if err := os.WriteFile(input, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(&Config{
		BatchSize:   2, // force multiple batches
		WorkerCount: 3,
		Fields:      []string{"EMAIL"},
		Policy:      "REDACT",
	})

	result, err := p.ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 5 || result.TotalFindings != 5 {
		t.Errorf("Result = %+v, want 5 records with 5 findings", result)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("Output has %d lines, want 5", len(lines))
	}
	for i, line := range lines {
		var record TextRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", i, err)
		}
		if record.ID != fmt.Sprintf("r%d", i) {
			t.Errorf("Line %d ID = %q, order not preserved", i, record.ID)
		}
		if strings.Contains(record.Text, "@") {
			t.Errorf("Line %d still contains an email: %q", i, record.Text)
		}
	}
}

func TestProcessFileInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(input, []byte("id,text\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(&Config{Policy: "SHOUT"})
	if _, err := p.ProcessFile(context.Background(), input, filepath.Join(dir, "out.csv")); err == nil {
		t.Error("Expected error for invalid policy")
	}
}
