package pii

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	return NewEngine(NewRegistry(), Config{}, zap.NewNop())
}

func TestTransform_NoMatches(t *testing.T) {
	engine := newTestEngine()
	text := "nothing sensitive in here"
	fields := []string{"EMAIL", "PHONE", "SSN", "CREDIT_CARD"}

	for _, policy := range []Policy{PolicyRedact, PolicyAnonymize, PolicyHash} {
		t.Run(policy.String(), func(t *testing.T) {
			result, err := engine.Transform(text, fields, policy)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if result.Text != text {
				t.Errorf("Text changed with no matches: %q", result.Text)
			}
			if len(result.Records) != 0 {
				t.Errorf("Expected no records, got %d", len(result.Records))
			}
		})
	}
}

func TestTransform_Redact(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Transform("Email me at a@b.com", []string{"EMAIL"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	want := strings.Repeat(DefaultFiller, len("a@b.com"))
	if !strings.HasSuffix(result.Text, want) {
		t.Errorf("Text should end with filler repeated 7 times, got %q", result.Text)
	}
	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	record := result.Records[0]
	if record.Kind != "EMAIL" {
		t.Errorf("Expected kind EMAIL, got %s", record.Kind)
	}
	if record.Original != "a@b.com" {
		t.Errorf("Expected original a@b.com, got %q", record.Original)
	}
	if record.Replacement != want {
		t.Errorf("Expected replacement %q, got %q", want, record.Replacement)
	}
}

func TestTransform_RedactFillerLength(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Transform(
		"SSN 123-45-6789 here", []string{"SSN"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for _, record := range result.Records {
		count := strings.Count(record.Replacement, DefaultFiller)
		if count != len(record.Original) {
			t.Errorf("Replacement has %d fillers, original is %d bytes",
				count, len(record.Original))
		}
		if strings.Trim(record.Replacement, DefaultFiller) != "" {
			t.Errorf("Replacement contains non-filler characters: %q", record.Replacement)
		}
	}
}

func TestTransform_AnonymizeCountersRightToLeft(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Transform(
		"SSN 123-45-6789 and 987-65-4321", []string{"SSN"}, PolicyAnonymize)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}

	// Rightmost match is processed first and gets counter 1.
	if result.Records[0].Original != "987-65-4321" || result.Records[0].Replacement != "<SSN_1>" {
		t.Errorf("Rightmost span should carry counter 1, got %+v", result.Records[0])
	}
	if result.Records[1].Original != "123-45-6789" || result.Records[1].Replacement != "<SSN_2>" {
		t.Errorf("Leftmost span should carry counter 2, got %+v", result.Records[1])
	}
	if !strings.Contains(result.Text, "<SSN_1>") || !strings.Contains(result.Text, "<SSN_2>") {
		t.Errorf("Rewritten text missing placeholders: %q", result.Text)
	}
}

func TestTransform_AnonymizeCountersPerKind(t *testing.T) {
	engine := newTestEngine()

	text := "a@b.com and c@d.com, SSN 123-45-6789"
	result, err := engine.Transform(text, []string{"EMAIL", "SSN"}, PolicyAnonymize)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	seen := make(map[string]map[string]bool)
	for _, record := range result.Records {
		if seen[record.Kind] == nil {
			seen[record.Kind] = make(map[string]bool)
		}
		if seen[record.Kind][record.Replacement] {
			t.Errorf("Duplicate counter value %q for kind %s", record.Replacement, record.Kind)
		}
		seen[record.Kind][record.Replacement] = true
	}
	if len(seen["EMAIL"]) != 2 {
		t.Errorf("Expected 2 distinct EMAIL placeholders, got %d", len(seen["EMAIL"]))
	}
	if len(seen["SSN"]) != 1 {
		t.Errorf("Expected 1 SSN placeholder, got %d", len(seen["SSN"]))
	}
}

func TestTransform_HashDeterministic(t *testing.T) {
	engine := newTestEngine()
	text := "card 4111-1111-1111-1111"

	first, err := engine.Transform(text, []string{"CREDIT_CARD"}, PolicyHash)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	second, err := engine.Transform(text, []string{"CREDIT_CARD"}, PolicyHash)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if len(first.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(first.Records))
	}
	replacement := first.Records[0].Replacement
	if len(replacement) != 8 {
		t.Errorf("Hash replacement should be 8 hex characters, got %q", replacement)
	}
	for _, c := range replacement {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("Replacement contains non-hex character: %q", replacement)
		}
	}
	if second.Records[0].Replacement != replacement {
		t.Error("Hash replacement should be stable across calls")
	}

	other, err := engine.Transform("card 5500-0000-0000-0004", []string{"CREDIT_CARD"}, PolicyHash)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if other.Records[0].Replacement == replacement {
		t.Error("Different card numbers should hash differently")
	}
}

func TestTransform_HashIdenticalSubstrings(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Transform(
		"a@b.com then later a@b.com again", []string{"EMAIL"}, PolicyHash)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Replacement != result.Records[1].Replacement {
		t.Error("Identical originals should yield identical hash replacements within one call")
	}
}

func TestTransform_UnknownFieldsSkipped(t *testing.T) {
	engine := newTestEngine()
	text := "reach me at a@b.com"

	withBogus, err := engine.Transform(text, []string{"EMAIL", "BOGUS"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	withoutBogus, err := engine.Transform(text, []string{"EMAIL"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if withBogus.Text != withoutBogus.Text {
		t.Error("Unknown field should not change the rewritten text")
	}
	if !reflect.DeepEqual(withBogus.Records, withoutBogus.Records) {
		t.Error("Unknown field should not change the records")
	}
	if len(withBogus.Unknown) != 1 || withBogus.Unknown[0] != "BOGUS" {
		t.Errorf("Expected BOGUS reported as unknown, got %v", withBogus.Unknown)
	}
}

func TestTransform_OnlyUnknownFields(t *testing.T) {
	engine := newTestEngine()
	text := "a@b.com"

	result, err := engine.Transform(text, []string{"NAME", "ADDRESS"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if result.Text != text {
		t.Error("Text should be unchanged when no field resolves")
	}
	if len(result.Records) != 0 {
		t.Errorf("Expected no records, got %d", len(result.Records))
	}
	if len(result.Unknown) != 2 {
		t.Errorf("Expected 2 unknown fields, got %v", result.Unknown)
	}
}

func TestTransform_Deterministic(t *testing.T) {
	engine := newTestEngine()
	text := "Contact john.doe@example.com or call 555-123-4567. SSN 123-45-6789, card 4111-1111-1111-1111."
	fields := []string{"EMAIL", "PHONE", "SSN", "CREDIT_CARD"}

	for _, policy := range []Policy{PolicyRedact, PolicyAnonymize, PolicyHash} {
		t.Run(policy.String(), func(t *testing.T) {
			first, err := engine.Transform(text, fields, policy)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			second, err := engine.Transform(text, fields, policy)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if first.Text != second.Text {
				t.Error("Repeated calls should produce identical text")
			}
			if !reflect.DeepEqual(first.Records, second.Records) {
				t.Error("Repeated calls should produce identical records")
			}
		})
	}
}

func TestTransform_RecordsRightmostFirst(t *testing.T) {
	engine := newTestEngine()

	result, err := engine.Transform(
		"first a@b.com then c@d.com", []string{"EMAIL"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Original != "c@d.com" {
		t.Errorf("First record should be the rightmost match, got %q", result.Records[0].Original)
	}
	if result.Records[1].Original != "a@b.com" {
		t.Errorf("Second record should be the leftmost match, got %q", result.Records[1].Original)
	}
}

func TestTransform_MultipleKinds(t *testing.T) {
	engine := newTestEngine()
	text := "Contact John Doe at john.doe@example.com or call 555-123-4567. His SSN is 123-45-6789 and credit card 4111-1111-1111-1111."

	result, err := engine.Transform(text,
		[]string{"EMAIL", "PHONE", "SSN", "CREDIT_CARD"}, PolicyAnonymize)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	kinds := make(map[string]int)
	for _, record := range result.Records {
		kinds[record.Kind]++
	}
	for _, want := range []string{"EMAIL", "PHONE", "SSN", "CREDIT_CARD"} {
		if kinds[want] == 0 {
			t.Errorf("Expected at least one %s record, got none", want)
		}
	}
	for _, needle := range []string{"john.doe@example.com", "123-45-6789", "4111-1111-1111-1111"} {
		if strings.Contains(result.Text, needle) {
			t.Errorf("Rewritten text still contains %q", needle)
		}
	}
}

func TestTransform_CustomFiller(t *testing.T) {
	engine := NewEngine(NewRegistry(), Config{Filler: "*"}, zap.NewNop())

	result, err := engine.Transform("mail a@b.com", []string{"email"}, PolicyRedact)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if result.Records[0].Replacement != strings.Repeat("*", len("a@b.com")) {
		t.Errorf("Custom filler not applied: %q", result.Records[0].Replacement)
	}
}

func TestTransform_UTF8Preserved(t *testing.T) {
	engine := newTestEngine()
	text := "héllo wörld a@b.com Ω"

	result, err := engine.Transform(text, []string{"EMAIL"}, PolicyHash)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !strings.HasPrefix(result.Text, "héllo wörld ") || !strings.HasSuffix(result.Text, " Ω") {
		t.Errorf("Multi-byte neighbors mangled: %q", result.Text)
	}
}
