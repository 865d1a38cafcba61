package pii

import "testing"

func TestRegistryPatterns(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name    string
		kind    Kind
		text    string
		matches []string
	}{
		{"email simple", KindEmail, "mail a@b.com now", []string{"a@b.com"}},
		{"email mixed case", KindEmail, "John.Doe+tag@Example.ORG", []string{"John.Doe+tag@Example.ORG"}},
		{"email subdomain", KindEmail, "x@mail.example.co.uk", []string{"x@mail.example.co.uk"}},
		{"email none", KindEmail, "no at sign here", nil},
		{"phone dashes", KindPhone, "call 555-123-4567", []string{"555-123-4567"}},
		{"phone dots", KindPhone, "call 555.123.4567", []string{"555.123.4567"}},
		// \b cannot match before a non-word character, so a leading "(" or
		// "+1" sits outside the reported span.
		{"phone parens", KindPhone, "call (800) 555-1212", []string{"800) 555-1212"}},
		{"phone country code", KindPhone, "call +1-555-123-4567", []string{"555-123-4567"}},
		{"phone bare digits", KindPhone, "5551234567", []string{"5551234567"}},
		{"ssn grouped", KindSSN, "SSN 123-45-6789", []string{"123-45-6789"}},
		{"ssn bare", KindSSN, "SSN 123456789", []string{"123456789"}},
		{"ssn two", KindSSN, "123-45-6789 and 987-65-4321", []string{"123-45-6789", "987-65-4321"}},
		{"card dashes", KindCreditCard, "card 4111-1111-1111-1111", []string{"4111-1111-1111-1111"}},
		{"card spaces", KindCreditCard, "card 4111 1111 1111 1111", []string{"4111 1111 1111 1111"}},
		{"card bare", KindCreditCard, "card 4111111111111111", []string{"4111111111111111"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexes := registry.Find(tt.kind, tt.text)
			if len(indexes) != len(tt.matches) {
				t.Fatalf("Expected %d matches, got %d", len(tt.matches), len(indexes))
			}
			for i, idx := range indexes {
				got := tt.text[idx[0]:idx[1]]
				if got != tt.matches[i] {
					t.Errorf("Match %d: expected %q, got %q", i, tt.matches[i], got)
				}
			}
		})
	}
}

func TestRegistryMatchesLeftToRight(t *testing.T) {
	registry := NewRegistry()

	indexes := registry.Find(KindEmail, "a@b.com then c@d.com")
	if len(indexes) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(indexes))
	}
	if indexes[0][0] >= indexes[1][0] {
		t.Error("Matches should be reported in left-to-right order")
	}
}

func TestRegistryOffsetsAreByteAligned(t *testing.T) {
	registry := NewRegistry()

	// Multi-byte characters before the match shift byte offsets past rune
	// counts; the reported offsets must still slice out the exact match.
	text := "héllo wörld a@b.com"
	indexes := registry.Find(KindEmail, text)
	if len(indexes) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(indexes))
	}
	if got := text[indexes[0][0]:indexes[0][1]]; got != "a@b.com" {
		t.Errorf("Byte offsets sliced %q, expected a@b.com", got)
	}
}
