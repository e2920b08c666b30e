package validate

import "fmt"

// Mode controls how a caller reacts to a Report.
type Mode int

const (
	// Lenient accepts the archive regardless of diagnostics; callers are
	// expected to inspect the report themselves.
	Lenient Mode = iota
	// Strict rejects the archive outright if the report has any Error
	// severity diagnostic.
	Strict
)

// Err returns a non-nil error describing the first error diagnostic when
// mode is Strict and the report has errors; nil otherwise.
func (m Mode) Err(r *Report) error {
	if m != Strict || !r.HasErrors() {
		return nil
	}
	for _, d := range r.Diagnostics {
		if d.Severity == Error {
			return fmt.Errorf("validate: %s: %s", d.Code, d.Message)
		}
	}
	return nil
}
