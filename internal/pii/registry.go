package pii

import "regexp"

// Registry holds the compiled matcher for every supported kind. It is built
// once at process start and shared read-only across concurrent calls; matchers
// never mutate state. Patterns are restricted to ASCII character classes, so
// every reported offset falls on a UTF-8 boundary and splicing at match
// offsets is always safe.
type Registry struct {
	patterns map[Kind]*regexp.Regexp
}

// NewRegistry compiles the built-in pattern set. A pattern that fails to
// compile is a programming error, so MustCompile panics at startup rather
// than surfacing a runtime error.
func NewRegistry() *Registry {
	return &Registry{
		patterns: map[Kind]*regexp.Regexp{
			KindEmail:      regexp.MustCompile(`(?i)[\w.+-]+@[\w.-]+\.\w{2,}`),
			KindPhone:      regexp.MustCompile(`\b(?:\+1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
			KindSSN:        regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`),
			KindCreditCard: regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`),
		},
	}
}

// Find returns all non-overlapping leftmost matches of the kind's pattern in
// text, as (start, end) byte-offset pairs in left-to-right order.
func (r *Registry) Find(kind Kind, text string) [][]int {
	pattern, ok := r.patterns[kind]
	if !ok {
		return nil
	}
	return pattern.FindAllStringIndex(text, -1)
}
