package pii

import "strings"

// Kind identifies a supported category of personally identifiable information.
// The set is closed: adding a kind means adding a constant here, a pattern in
// the registry, and a case in every switch over Kind.
type Kind int

const (
	KindEmail Kind = iota
	KindPhone
	KindSSN
	KindCreditCard
)

// kindLabels holds the canonical uppercase identifiers used both for parsing
// requested field names and for labeling output records.
var kindLabels = [...]string{
	KindEmail:      "EMAIL",
	KindPhone:      "PHONE",
	KindSSN:        "SSN",
	KindCreditCard: "CREDIT_CARD",
}

// String returns the canonical uppercase label for the kind.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindLabels) {
		return "UNKNOWN"
	}
	return kindLabels[k]
}

// AllKinds returns every supported kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindEmail, KindPhone, KindSSN, KindCreditCard}
}

// ParseKind maps a caller-supplied field identifier to a Kind. Comparison is
// case-insensitive against the canonical labels. Unrecognized identifiers
// return an UnknownKindError; callers are expected to skip them and continue,
// never to substitute a default kind.
func ParseKind(identifier string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(identifier)) {
	case "EMAIL":
		return KindEmail, nil
	case "PHONE":
		return KindPhone, nil
	case "SSN":
		return KindSSN, nil
	case "CREDIT_CARD":
		return KindCreditCard, nil
	default:
		return 0, &UnknownKindError{Identifier: identifier}
	}
}

// ResolveKinds parses a list of field identifiers, returning the recognized
// kinds in input order and the identifiers that did not resolve. Duplicate
// identifiers resolve to duplicate kinds; the collector runs the matcher once
// per requested entry, as the caller asked.
func ResolveKinds(identifiers []string) (kinds []Kind, unknown []string) {
	for _, id := range identifiers {
		kind, err := ParseKind(id)
		if err != nil {
			unknown = append(unknown, id)
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds, unknown
}
