package parser

import (
	"regexp"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

var (
	explicitIDRe  = regexp.MustCompile(`(?i)[\[\({]?\s*id\s*[:=]\s*([a-z0-9_-]+)\s*[\]\)}]?`)
	classicWordRe = regexp.MustCompile(`(?i)\bclassic\b`)
	conjunctionRe = regexp.MustCompile(`\s+(?:and|&)\s+`)
)

// classifyAssignment maps an assessment phrase to its assignment type.
// Precedence, first match wins: discussion, classic quiz, exam (quiz
// behavior, "classic" honored only when stated, name untouched), quiz,
// plain assignment. The "classic" literal is stripped from classic-quiz
// names; exam names are never altered.
func classifyAssignment(name string) (string, string) {
	lower := strings.ToLower(name)

	if strings.Contains(lower, "discussion") {
		return plan.TypeDiscussion, name
	}

	if strings.Contains(lower, "classic quiz") {
		cleaned := classicWordRe.ReplaceAllString(name, "")
		cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
		return plan.TypeClassicQuiz, cleaned
	}

	if strings.Contains(lower, "exam") {
		if strings.Contains(lower, "classic") {
			return plan.TypeClassicQuiz, name
		}
		return plan.TypeQuiz, name
	}

	if strings.Contains(lower, "quiz") {
		return plan.TypeQuiz, name
	}

	return plan.TypeAssignment, name
}

// extractExplicitID pulls an id:<token> / id=<token> marker (optionally
// bracket-, paren- or brace-wrapped) out of an assessment phrase. The
// marker always wins over synthesized ids and is preserved verbatim.
func extractExplicitID(value string) (string, plan.ID, bool) {
	loc := explicitIDRe.FindStringSubmatchIndex(value)
	if loc == nil {
		return value, "", false
	}
	id := plan.ID(strings.TrimSpace(value[loc[2]:loc[3]]))

	cleaned := value[:loc[0]] + " " + value[loc[1]:]
	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
	cleaned = strings.Trim(cleaned, " -:;,")
	return cleaned, id, true
}

func hasTypeKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range []string{"discussion", "quiz", "exam", "assignment"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitDeliverables breaks one assessment line into individual
// deliverables. Semicolons always separate; "and"/"&" separates only when
// both sides carry a type keyword of their own. A conjunction with a
// keyword on exactly one side is left whole and reported as ambiguous.
func splitDeliverables(item string) ([]string, bool) {
	var parts []string
	ambiguous := false

	for _, seg := range strings.Split(item, ";") {
		seg = normalizeText(seg)
		if seg == "" {
			continue
		}

		loc := conjunctionRe.FindStringIndex(seg)
		if loc == nil {
			parts = append(parts, seg)
			continue
		}
		left := normalizeText(seg[:loc[0]])
		right := normalizeText(seg[loc[1]:])
		switch {
		case hasTypeKeyword(left) && hasTypeKeyword(right):
			parts = append(parts, left, right)
		case hasTypeKeyword(left) != hasTypeKeyword(right):
			ambiguous = true
			parts = append(parts, seg)
		default:
			parts = append(parts, seg)
		}
	}
	return parts, ambiguous
}

// parseAssignments turns an assessment cell into assignment records,
// running explicit-id extraction before classification and synthesizing
// ids from the shared counters otherwise.
func parseAssignments(cell string, counters *plan.Counters) ([]plan.Assignment, bool) {
	var out []plan.Assignment
	ambiguous := false

	for _, item := range splitItems(cell) {
		deliverables, amb := splitDeliverables(item)
		ambiguous = ambiguous || amb
		for _, deliverable := range deliverables {
			cleaned, explicitID, hasExplicit := extractExplicitID(normalizeText(deliverable))
			assignType, assignName := classifyAssignment(cleaned)
			id := explicitID
			if !hasExplicit {
				id = counters.NextAssignmentID(assignType)
			}
			out = append(out, plan.Assignment{
				ID:   id,
				Name: assignName,
				Type: assignType,
			})
		}
	}
	return out, ambiguous
}
