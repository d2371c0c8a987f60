package bundle

import (
	"fmt"
	"strings"

	"github.com/hupe1980/panelport/internal/maputil"
	"github.com/hupe1980/panelport/internal/savedobject"
)

// ValidationSeverity indicates the severity of a validation finding.
type ValidationSeverity int

const (
	// SeverityError means the bundle would not import cleanly.
	SeverityError ValidationSeverity = iota
	// SeverityWarning means the bundle may be problematic.
	SeverityWarning
)

// String returns the severity name.
func (s ValidationSeverity) String() string {
	if s == SeverityError {
		return "error"
	}

	return "warning"
}

// ValidationFinding is a single validation issue.
type ValidationFinding struct {
	Severity ValidationSeverity
	Field    string
	Message  string
}

// Error implements the error interface.
func (f *ValidationFinding) Error() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Field, f.Message)
}

// ValidationResult holds all findings from a validation run.
type ValidationResult struct {
	Findings []ValidationFinding
}

// Errors returns only error-severity findings.
func (r *ValidationResult) Errors() []ValidationFinding {
	return r.filter(SeverityError)
}

// Warnings returns only warning-severity findings.
func (r *ValidationResult) Warnings() []ValidationFinding {
	return r.filter(SeverityWarning)
}

// HasErrors returns true if any error-severity findings exist.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors()) > 0
}

// HasWarnings returns true if any warning-severity findings exist.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

func (r *ValidationResult) filter(s ValidationSeverity) []ValidationFinding {
	var result []ValidationFinding

	for _, f := range r.Findings {
		if f.Severity == s {
			result = append(result, f)
		}
	}

	return result
}

// Validate checks that b is self-contained: every panel, saved search and
// index pattern referenced from the bundle is part of it, and every
// embedded JSON document parses. With a non-empty releaseKey, objects the
// importer gates on (the dashboard, or each index pattern of an
// index-pattern-only bundle) must carry a release marker.
func Validate(b *Bundle, releaseKey string) *ValidationResult {
	v := &validator{bundle: b, releaseKey: releaseKey}
	v.validate()

	return &v.result
}

type validator struct {
	bundle     *Bundle
	releaseKey string
	result     ValidationResult
}

func (v *validator) addError(field, msg string) {
	v.result.Findings = append(v.result.Findings, ValidationFinding{
		Severity: SeverityError,
		Field:    field,
		Message:  msg,
	})
}

func (v *validator) addWarning(field, msg string) {
	v.result.Findings = append(v.result.Findings, ValidationFinding{
		Severity: SeverityWarning,
		Field:    field,
		Message:  msg,
	})
}

func (v *validator) validate() {
	v.validatePanels()

	for _, s := range v.bundle.Searches {
		v.validateIndexPattern(s)
	}

	for _, vis := range v.bundle.Visualizations {
		v.validateVisualization(vis)
	}

	v.validateMarkers()
}

func (v *validator) validatePanels() {
	dash := v.bundle.Dashboard
	if dash == nil {
		return
	}

	field := dash.Key().String()

	refs, ok, err := dash.PanelRefs()
	if err != nil {
		v.addError(field, err.Error())
		return
	}

	if !ok || len(refs) == 0 {
		v.addWarning(field, "dashboard has no panels")
		return
	}

	for i, ref := range refs {
		panel := fmt.Sprintf("%s panel %d", field, i)

		switch ref.Type {
		case savedobject.TypeVisualization, savedobject.TypeSearch:
		default:
			v.addWarning(panel, fmt.Sprintf("unsupported panel type %q is not bundled", ref.Type))
			continue
		}

		if ref.ID == "" {
			v.addError(panel, "panel has no id and no resolvable reference")
			continue
		}

		if !v.bundle.Has(savedobject.Key{Type: ref.Type, ID: ref.ID}) {
			v.addError(panel, fmt.Sprintf("references %s/%s which is not in the bundle", ref.Type, ref.ID))
		}
	}
}

func (v *validator) validateVisualization(vis *savedobject.Object) {
	if id := savedobject.SavedSearchID(vis); id != "" {
		if !v.bundle.Has(savedobject.Key{Type: savedobject.TypeSearch, ID: id}) {
			v.addError(vis.Key().String(), fmt.Sprintf("saved search %q is not in the bundle", id))
		}

		return
	}

	v.validateIndexPattern(vis)
}

func (v *validator) validateIndexPattern(o *savedobject.Object) {
	id, err := savedobject.IndexPatternID(o)
	if err != nil {
		v.addError(o.Key().String(), err.Error())
		return
	}

	if id == "" {
		return
	}

	if !v.bundle.Has(savedobject.Key{Type: savedobject.TypeIndexPattern, ID: id}) {
		v.addWarning(o.Key().String(), fmt.Sprintf("index pattern %q is not in the bundle", id))
	}
}

func (v *validator) validateMarkers() {
	if v.releaseKey == "" {
		return
	}

	gated := v.bundle.IndexPatterns
	if v.bundle.Dashboard != nil {
		gated = []*savedobject.Object{v.bundle.Dashboard}
	}

	for _, o := range gated {
		if val, ok := maputil.Get(o.Attributes, v.releaseKey); !ok || val == nil {
			v.addWarning(o.Key().String(), fmt.Sprintf("no release marker under %q; strict import will fail", v.releaseKey))
		}
	}
}

// FormatValidationResult formats a validation result as a human-readable string.
func FormatValidationResult(result *ValidationResult) string {
	if len(result.Findings) == 0 {
		return "Validation passed: no issues found."
	}

	var sb strings.Builder

	errs := result.Errors()
	warnings := result.Warnings()

	if len(errs) > 0 {
		_, _ = fmt.Fprintf(&sb, "Errors (%d):\n", len(errs))

		for _, f := range errs {
			_, _ = fmt.Fprintf(&sb, "  - %s: %s\n", f.Field, f.Message)
		}
	}

	if len(warnings) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		_, _ = fmt.Fprintf(&sb, "Warnings (%d):\n", len(warnings))

		for _, f := range warnings {
			_, _ = fmt.Fprintf(&sb, "  - %s: %s\n", f.Field, f.Message)
		}
	}

	return sb.String()
}
