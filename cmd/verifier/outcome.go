package verifier

// Outcome classifies a finished comparison. Its value is the process exit code.
type Outcome int

const (
	OutcomeClean        Outcome = 0
	OutcomeFieldDiffs   Outcome = 2
	OutcomeIDSetsDiffer Outcome = 3
)

// Evaluate picks the outcome: field diffs win over identifier differences.
func Evaluate(summary *Summary, diffs []Diff) Outcome {
	if len(diffs) > 0 {
		return OutcomeFieldDiffs
	}
	if summary.IDSetsDiffer() {
		return OutcomeIDSetsDiffer
	}
	return OutcomeClean
}

// Message is the closing status line for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeFieldDiffs:
		return "Field-level differences found."
	case OutcomeIDSetsDiffer:
		return "No field-level diffs found, but ID sets differ."
	default:
		return "OK: No differences detected for compared fields, and no rows lost/added."
	}
}

// String names the outcome for machine-readable reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeFieldDiffs:
		return "field_diffs"
	case OutcomeIDSetsDiffer:
		return "id_sets_differ"
	default:
		return "clean"
	}
}
