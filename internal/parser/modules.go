package parser

import (
	"fmt"
	"strings"

	"github.com/edtools/cagforge/internal/docx"
	"github.com/edtools/cagforge/internal/plan"
)

// fileEmbedLink is the Canvas inline file anchor, parameterized by course
// id and file id.
const fileEmbedLink = `<a class="instructure_file_link instructure_scribd_file inline_disabled" ` +
	`href="/courses/%s/files/%d?wrap=1" target="_blank" rel="noopener noreferrer">%s</a>`

// columnLayout maps the detected table width to cell positions.
type columnLayout struct {
	overview    int // -1 when the table has no overview column
	objectives  int
	assessments int
	content     int
}

func layoutFor(columns int) (columnLayout, error) {
	switch columns {
	case 4:
		return columnLayout{overview: -1, objectives: 1, assessments: 2, content: 3}, nil
	case 5:
		return columnLayout{overview: 1, objectives: 2, assessments: 3, content: 4}, nil
	default:
		return columnLayout{}, fmt.Errorf("unsupported alignment grid format: expected 4 or 5 columns, found %d", columns)
	}
}

// buildModules converts the alignment table into module records. The first
// row is the header. A row whose first cell names a module may be followed
// by a detail row holding the actual cells; both shapes appear in the wild.
func buildModules(table docx.Table, contentCourseID string, counters *plan.Counters) ([]plan.Module, []string, error) {
	layout, err := layoutFor(table.Columns())
	if err != nil {
		return nil, nil, err
	}

	var (
		modules      []plan.Module
		warnings     []string
		moduleNumber = 1
	)

	for i := 1; i < len(table); i++ {
		cells := padCells(table[i], layout.content+1)
		moduleName := stripModuleNotes(cells[0])
		if moduleName == "" {
			continue
		}

		detailCells := cells
		if strings.HasPrefix(strings.ToLower(moduleName), "module") && i+1 < len(table) {
			nextCells := padCells(table[i+1], layout.content+1)
			if !strings.HasPrefix(strings.ToLower(stripModuleNotes(nextCells[0])), "module") {
				detailCells = nextCells
				i++
			}
		}

		overview := ""
		if layout.overview >= 0 {
			overview = normalizeText(detailCells[layout.overview])
		}

		assignments, ambiguous := parseAssignments(detailCells[layout.assessments], counters)
		if ambiguous {
			warnings = append(warnings, fmt.Sprintf("module %d: ambiguous deliverable conjunction left unsplit", moduleNumber))
		}

		content, pages, files := parseContent(detailCells[layout.content], contentCourseID, counters)

		module := plan.Module{
			ID:          moduleNumber,
			Name:        moduleName,
			Number:      moduleNumber,
			Position:    moduleNumber + 3,
			Overview:    overview,
			Objectives:  parseModuleObjectives(detailCells[layout.objectives]),
			Assignments: assignments,
			Content:     content,
			Pages:       pages,
			Files:       files,
		}
		module.EnsureShape()
		modules = append(modules, module)
		moduleNumber++
	}

	return modules, warnings, nil
}

// parseContent interprets a content cell: new-page markers become page
// records plus page links, file:<id> tokens become file records plus
// embed anchors, everything else passes through with URLs wrapped.
func parseContent(cell, contentCourseID string, counters *plan.Counters) ([]string, []plan.Page, []plan.File) {
	var (
		content []string
		pages   []plan.Page
		files   []plan.File
	)

	for _, item := range splitItems(cell) {
		normalized := normalizeText(item)

		if normalized == "#new_page" || newPageMarkerRe.MatchString(normalized) {
			title := newPageMarkerRe.ReplaceAllString(normalized, "")
			title = strings.ReplaceAll(title, "#new_page", "")
			title = normalizeText(strings.Trim(title, " -:"))
			pages = append(pages, plan.Page{ID: counters.NextPageID(), Title: title})
			content = append(content, fmt.Sprintf(`<a href="#new_page">%s</a>`, title))
			continue
		}

		if name, fileID, ok := parseFileMarker(normalized); ok {
			files = append(files, plan.File{ID: fileID, Name: name})
			content = append(content, fmt.Sprintf(fileEmbedLink, contentCourseID, fileID, name))
			continue
		}

		content = append(content, replaceInlineLinks(normalized))
	}

	return content, pages, files
}

func padCells(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
