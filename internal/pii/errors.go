package pii

import "fmt"

// UnknownKindError reports a field identifier that does not map to a known
// Kind. It is diagnostic, not fatal: the engine skips the identifier and keeps
// processing the recognized ones.
type UnknownKindError struct {
	Identifier string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("invalid PII field type: %s", e.Identifier)
}

// ProcessingError reports an internal failure of the transformation pipeline,
// such as a span whose recorded offsets no longer fall inside the working
// text. The call fails as a whole; no partial result is returned.
type ProcessingError struct {
	Reason string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing error: %s", e.Reason)
}
