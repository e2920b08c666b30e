// Package validate runs the structural checks described for an EPUB
// archive — container, package document, manifest, spine, navigation, and
// optional encryption/rights sidecars — and reports them as a flat list of
// structured diagnostics rather than failing outright, so a caller can
// choose strict or lenient behavior.
package validate

import "fmt"

// Severity classifies how serious a diagnostic is.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	default:
		return "Info"
	}
}

// Diagnostic is one structured finding.
type Diagnostic struct {
	Code        string
	Severity    Severity
	Message     string
	Path        string // archive-relative path the finding concerns, if any
	Location    string // e.g. a manifest id or idref, if any
	SpecRef     string
	Remediation string
}

// Report collects every diagnostic produced by a validation pass.
type Report struct {
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic has Error severity.
func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (r *Report) add(d Diagnostic) { r.Diagnostics = append(r.Diagnostics, d) }

func (r *Report) errorf(code, specRef, remediation, path, location, format string, args ...any) {
	r.add(Diagnostic{Code: code, Severity: Error, Message: fmt.Sprintf(format, args...), Path: path, Location: location, SpecRef: specRef, Remediation: remediation})
}

func (r *Report) warnf(code, specRef, remediation, path, location, format string, args ...any) {
	r.add(Diagnostic{Code: code, Severity: Warning, Message: fmt.Sprintf(format, args...), Path: path, Location: location, SpecRef: specRef, Remediation: remediation})
}

func (r *Report) infof(code, specRef, remediation, path, location, format string, args ...any) {
	r.add(Diagnostic{Code: code, Severity: Info, Message: fmt.Sprintf(format, args...), Path: path, Location: location, SpecRef: specRef, Remediation: remediation})
}
