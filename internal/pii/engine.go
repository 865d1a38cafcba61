package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultFiller is the redaction filler character. It is a multi-byte rune, so
// redacted output is longer in bytes than the original span; length-preserving
// redaction is not a guarantee of this engine.
const DefaultFiller = "█"

// hashPrefixLen is the number of hex characters kept from the SHA-256 digest
// under PolicyHash. 8 hex chars is 32 bits of entropy: collisions are possible
// and accepted in exchange for short output.
const hashPrefixLen = 8

// Record is one completed substitution: what was found, under which kind
// label, and what replaced it.
type Record struct {
	Kind        string `json:"kind"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// Result is the outcome of one Transform call. Records are ordered by the
// sequence substitutions were applied, which is rightmost match first, not
// reading order. Unknown lists requested field identifiers that did not
// resolve to a kind.
type Result struct {
	Text    string
	Records []Record
	Unknown []string
}

// Config carries the engine's tunables.
type Config struct {
	// Filler is the redaction filler string; DefaultFiller when empty.
	Filler string
}

// Engine detects PII spans and rewrites them under a policy. It holds no
// per-call state: the registry is immutable and everything else is allocated
// per invocation, so a single Engine is safe for concurrent use.
type Engine struct {
	registry *Registry
	filler   string
	logger   *zap.Logger
}

// NewEngine creates an engine around an already-compiled registry.
func NewEngine(registry *Registry, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	filler := cfg.Filler
	if filler == "" {
		filler = DefaultFiller
	}
	return &Engine{
		registry: registry,
		filler:   filler,
		logger:   logger,
	}
}

// Transform detects every span of the requested kinds in text and replaces
// each one according to policy. Unrecognized field identifiers are skipped and
// reported via Result.Unknown; they never fail the call. The returned error is
// a ProcessingError only on internal pipeline failure, in which case no
// partial result is returned.
//
// Spans are processed in descending start order so earlier replacements never
// shift the offsets of spans still pending. Overlapping spans are not merged;
// when an overlap makes a recorded span fall outside the mutated text, the
// call fails rather than splice at a stale offset.
func (e *Engine) Transform(text string, fields []string, policy Policy) (*Result, error) {
	kinds, unknown := ResolveKinds(fields)
	for _, id := range unknown {
		e.logger.Warn("Skipping unrecognized PII field", zap.String("field", id))
	}

	spans := collectSpans(e.registry, text, kinds)
	orderForReplacement(spans)

	working := text
	records := make([]Record, 0, len(spans))
	var counters map[string]int
	if policy == PolicyAnonymize {
		counters = make(map[string]int, len(kindLabels))
	}

	for _, span := range spans {
		if span.Start < 0 || span.Start >= span.End || span.End > len(working) {
			return nil, &ProcessingError{
				Reason: fmt.Sprintf("span %s [%d,%d) outside working text of %d bytes",
					span.Kind, span.Start, span.End, len(working)),
			}
		}

		original := working[span.Start:span.End]
		label := span.Kind.String()

		var replacement string
		switch policy {
		case PolicyRedact:
			replacement = strings.Repeat(e.filler, span.End-span.Start)
		case PolicyAnonymize:
			counters[label]++
			replacement = fmt.Sprintf("<%s_%d>", label, counters[label])
		case PolicyHash:
			digest := sha256.Sum256([]byte(original))
			replacement = hex.EncodeToString(digest[:])[:hashPrefixLen]
		default:
			return nil, &ProcessingError{Reason: fmt.Sprintf("unhandled policy %d", policy)}
		}

		working = working[:span.Start] + replacement + working[span.End:]
		records = append(records, Record{Kind: label, Original: original, Replacement: replacement})
	}

	if len(records) > 0 {
		e.logger.Debug("PII transformed",
			zap.String("policy", policy.String()),
			zap.Int("spans", len(records)),
		)
	}

	return &Result{Text: working, Records: records, Unknown: unknown}, nil
}
