package pii

import (
	"fmt"
	"strings"
)

// Policy selects the replacement strategy applied to each detected span.
type Policy int

const (
	// PolicyRedact replaces each span with the filler character repeated once
	// per byte of the original span.
	PolicyRedact Policy = iota
	// PolicyAnonymize replaces each span with a numbered placeholder like
	// <EMAIL_1>, counters scoped to a single call.
	PolicyAnonymize
	// PolicyHash replaces each span with the first 8 hex characters of the
	// SHA-256 digest of the original substring.
	PolicyHash
)

var policyLabels = [...]string{
	PolicyRedact:    "REDACT",
	PolicyAnonymize: "ANONYMIZE",
	PolicyHash:      "HASH",
}

// String returns the uppercase serialized form of the policy.
func (p Policy) String() string {
	if int(p) < 0 || int(p) >= len(policyLabels) {
		return "UNKNOWN"
	}
	return policyLabels[p]
}

// ParsePolicy maps the serialized uppercase policy name to a Policy.
// Comparison is case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REDACT":
		return PolicyRedact, nil
	case "ANONYMIZE":
		return PolicyAnonymize, nil
	case "HASH":
		return PolicyHash, nil
	default:
		return 0, fmt.Errorf("unknown privacy policy: %q", s)
	}
}
