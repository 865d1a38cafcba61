package pii

import "sort"

// Span is one detected PII occurrence: byte offsets into the original text at
// detection time, 0 <= Start < End <= len(text).
type Span struct {
	Kind  Kind
	Start int
	End   int
}

// collectSpans runs each requested kind's matcher over the whole original
// text. Spans from different kinds (or the same kind requested twice) may
// overlap or coincide; conflict resolution is deliberately not attempted here.
func collectSpans(registry *Registry, text string, kinds []Kind) []Span {
	var spans []Span
	for _, kind := range kinds {
		for _, match := range registry.Find(kind, text) {
			spans = append(spans, Span{Kind: kind, Start: match[0], End: match[1]})
		}
	}
	return spans
}

// orderForReplacement sorts spans by descending start offset, ties keeping
// collection order. Replacing back-to-front means every not-yet-processed
// span's offsets stay valid while the text mutates, as long as spans do not
// overlap.
func orderForReplacement(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start > spans[j].Start
	})
}
