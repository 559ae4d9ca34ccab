// Package reconcile merges generated assignment identifiers with the live
// course's assignment list so the builder updates existing objects instead
// of duplicating them.
package reconcile

import (
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

// LiveAssignment is one assignment already present in the target course.
type LiveAssignment struct {
	ID   int64
	Name string
}

// Entry records the fate of one generated assignment for the audit report.
type Entry struct {
	Module int    `json:"module"`
	Name   string `json:"name"`
	ID     string `json:"id"`
	Result string `json:"result"` // matched, new, split
}

// Report summarizes one reconciliation pass.
type Report struct {
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	Split     int     `json:"split"`
	Entries   []Entry `json:"entries"`
}

// Reconcile walks every assignment record and matches it against the live
// list by exact, case-sensitive name. A match replaces only the id; name
// and type are never altered. A record whose name instead appears inside
// two or more live names is split into one record per live assignment,
// each carrying the live id and name and sharing the original type.
// Everything else keeps its generated id and is marked new.
//
// The pass is idempotent: its output names all exact-match against the
// same live list, so a second pass changes nothing.
func Reconcile(course *plan.Course, live []LiveAssignment) Report {
	byName := make(map[string]int64, len(live))
	for _, a := range live {
		byName[a.Name] = a.ID
	}

	report := Report{Entries: []Entry{}}

	for mi := range course.Modules {
		module := &course.Modules[mi]
		reconciled := make([]plan.Assignment, 0, len(module.Assignments))

		for _, assignment := range module.Assignments {
			if liveID, ok := byName[assignment.Name]; ok {
				assignment.ID = plan.ID(strconv.FormatInt(liveID, 10))
				assignment.New = false
				report.Matched++
				report.Entries = append(report.Entries, Entry{
					Module: module.Number, Name: assignment.Name,
					ID: string(assignment.ID), Result: "matched",
				})
				reconciled = append(reconciled, assignment)
				continue
			}

			partials := partialMatches(assignment.Name, live)
			if len(partials) >= 2 {
				report.Split++
				for _, match := range partials {
					split := plan.Assignment{
						ID:   plan.ID(strconv.FormatInt(match.ID, 10)),
						Name: match.Name,
						Type: assignment.Type,
					}
					report.Entries = append(report.Entries, Entry{
						Module: module.Number, Name: split.Name,
						ID: string(split.ID), Result: "split",
					})
					reconciled = append(reconciled, split)
				}
				continue
			}

			assignment.New = true
			report.Unmatched++
			report.Entries = append(report.Entries, Entry{
				Module: module.Number, Name: assignment.Name,
				ID: string(assignment.ID), Result: "new",
			})
			reconciled = append(reconciled, assignment)
		}

		module.Assignments = reconciled
	}

	return report
}

// partialMatches finds live assignments whose name contains the generated
// name as a proper fragment. Exact matches are excluded; they are handled
// before this runs.
func partialMatches(name string, live []LiveAssignment) []LiveAssignment {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	var out []LiveAssignment
	for _, a := range live {
		if a.Name != name && strings.Contains(a.Name, name) {
			out = append(out, a)
		}
	}
	return out
}
