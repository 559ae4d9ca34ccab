package parser

import (
	"fmt"

	"github.com/edtools/cagforge/internal/docx"
	"github.com/edtools/cagforge/internal/plan"
)

// Parse mode, selected by the caller.
type Mode string

const (
	ModeAuto          Mode = "auto"
	ModeDeterministic Mode = "deterministic"
	ModeLLM           Mode = "llm"
)

// Status tags a parse outcome.
type Status int

const (
	StatusHighConfidence Status = iota
	StatusLowConfidence
	StatusFailed
)

// Outcome is the tagged result of a deterministic parse attempt: a course
// with a confidence verdict, or a structural failure. The confidence gate
// consumes it; nothing downstream inspects parse internals.
type Outcome struct {
	Status  Status
	Course  plan.Course
	Score   float64
	Reasons []string
	Err     error
}

// Decision is the gate's routing verdict.
type Decision int

const (
	UseDeterministic Decision = iota
	UseFallback
	Fail
)

// Parse runs the deterministic extractor and grades its own output.
//
// High confidence requires: structural success, at least one module,
// course code or name present, at most half the modules empty, and no
// split-ambiguity warnings. The score is the fraction of non-empty
// modules and is reported for audit only; routing uses the predicate.
func Parse(doc *docx.Document, contentCourseID string) Outcome {
	course, warnings, err := ExtractCourse(doc, contentCourseID)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}

	reasons := append([]string(nil), warnings...)

	total := len(course.Modules)
	empty := 0
	for _, m := range course.Modules {
		if m.Name == "" || (len(m.Objectives) == 0 && len(m.Assignments) == 0 && len(m.Content) == 0) {
			empty++
		}
	}

	score := 0.0
	if total > 0 {
		score = float64(total-empty) / float64(total)
	}

	if total == 0 {
		reasons = append(reasons, "no modules extracted")
	}
	if course.CourseCode == "" && course.CourseName == "" {
		reasons = append(reasons, "course code and name both missing")
	}
	if total > 0 && empty > total/2 {
		reasons = append(reasons, fmt.Sprintf("%d of %d modules empty", empty, total))
	}

	status := StatusHighConfidence
	if len(reasons) > 0 {
		status = StatusLowConfidence
	}
	return Outcome{Status: status, Course: course, Score: score, Reasons: reasons}
}

// Decide implements the confidence gate. Deterministic mode never falls
// back and treats only structural failure as terminal; llm mode always
// routes to the fallback; auto falls back on anything below high
// confidence.
func Decide(outcome Outcome, mode Mode) (Decision, error) {
	switch mode {
	case ModeDeterministic:
		if outcome.Status == StatusFailed {
			return Fail, outcome.Err
		}
		return UseDeterministic, nil
	case ModeLLM:
		return UseFallback, nil
	case ModeAuto:
		if outcome.Status == StatusHighConfidence {
			return UseDeterministic, nil
		}
		return UseFallback, nil
	default:
		return Fail, fmt.Errorf("unsupported parse mode: %s", mode)
	}
}
