package builder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edtools/cagforge/internal/canvas"
	"github.com/edtools/cagforge/internal/plan"
)

var anchorTextRe = regexp.MustCompile(`<a .*>(.*?)</a>`)

// createModules creates one Canvas module per plan module: two fixed
// subheaders, the rendered overview page, then the module's extra
// pages, files and assessments as items.
func (b *Builder) createModules(ctx context.Context, req *plan.BuildRequest, pageTemplate string, stats *Stats) error {
	courseID := req.CourseID

	for mi := range req.Course.Modules {
		module := &req.Course.Modules[mi]

		created, err := b.api.CreateModule(ctx, courseID, canvas.ModuleParams{
			Name:     module.Name,
			Position: module.Position,
		})
		if err != nil {
			return fmt.Errorf("create module %q: %w", module.Name, err)
		}
		stats.ModulesCreated++
		module.ID = int(created.ID)

		position := 0
		for _, subheader := range []string{"Discover", "Demonstrate"} {
			_, err := b.api.CreateModuleItem(ctx, courseID, created.ID, canvas.ModuleItemParams{
				Title:    subheader,
				Type:     "SubHeader",
				Position: position,
			})
			if err != nil {
				return fmt.Errorf("create subheader %q: %w", subheader, err)
			}
			stats.ModuleItemsCreated++
			position++
		}

		if err := b.createOverviewPage(ctx, courseID, created.ID, module, pageTemplate, stats); err != nil {
			return err
		}

		for pi := range module.Pages {
			page := &module.Pages[pi]
			if !page.ID.IsNumeric() {
				continue
			}
			_, err := b.api.CreateModuleItem(ctx, courseID, created.ID, canvas.ModuleItemParams{
				Title:     page.Title,
				Type:      "Page",
				ContentID: page.ID.Int64(),
				PageURL:   page.URL,
				Position:  position,
				Indent:    2,
			})
			if err != nil {
				return fmt.Errorf("add page item %q: %w", page.Title, err)
			}
			stats.ModuleItemsCreated++
			position++
		}

		for _, file := range module.Files {
			if file.ID == 0 {
				continue
			}
			title := file.Name
			if title == "" {
				title = fmt.Sprintf("File %d", file.ID)
			}
			_, err := b.api.CreateModuleItem(ctx, courseID, created.ID, canvas.ModuleItemParams{
				Title:     title,
				Type:      "File",
				ContentID: int64(file.ID),
				Position:  position,
				Indent:    2,
			})
			if err != nil {
				return fmt.Errorf("add file item %d: %w", file.ID, err)
			}
			stats.ModuleItemsCreated++
			position++
		}

		for _, assessment := range module.Assessments {
			if assessment.ID == 0 {
				continue
			}
			position++
			_, err := b.api.CreateModuleItem(ctx, courseID, created.ID, canvas.ModuleItemParams{
				Title:     nonEmpty(assessment.Name, "Assessment"),
				Type:      "Assignment",
				ContentID: assessment.ID,
				Position:  position,
				Indent:    1,
			})
			if err != nil {
				return fmt.Errorf("add assessment item %q: %w", assessment.Name, err)
			}
			stats.ModuleItemsCreated++
		}
	}
	return nil
}

// createOverviewPage creates the module's child pages, renders the
// overview page from the template and attaches it as the module's first
// real item.
func (b *Builder) createOverviewPage(ctx context.Context, courseID int, moduleID int64, module *plan.Module, pageTemplate string, stats *Stats) error {
	for pi := range module.Pages {
		page := &module.Pages[pi]
		created, err := b.api.CreatePage(ctx, courseID, canvas.PageParams{
			Title:          nonEmpty(page.Title, "Untitled Page"),
			Body:           ptr("[content placeholder]"),
			EditingRoles:   "teachers",
			Published:      ptr(false),
			FrontPage:      ptr(false),
			NotifyOfUpdate: ptr(false),
		})
		if err != nil {
			return fmt.Errorf("create page %q: %w", page.Title, err)
		}
		page.ID = plan.ID(strconv.FormatInt(created.PageID, 10))
		page.URL = created.URL
		stats.PagesCreated++
	}

	body := renderOverviewBody(courseID, module, pageTemplate)
	overview, err := b.api.CreatePage(ctx, courseID, canvas.PageParams{
		Title:          fmt.Sprintf("Module %d Overview", module.Number),
		Body:           ptr(body),
		EditingRoles:   "teachers",
		Published:      ptr(true),
		FrontPage:      ptr(false),
		NotifyOfUpdate: ptr(false),
	})
	if err != nil {
		return fmt.Errorf("create overview page for module %d: %w", module.Number, err)
	}
	stats.PagesCreated++
	module.OverviewPageID = int(overview.PageID)

	_, err = b.api.CreateModuleItem(ctx, courseID, moduleID, canvas.ModuleItemParams{
		Title:     overview.Title,
		Type:      "Page",
		ContentID: overview.PageID,
		PageURL:   overview.URL,
		Position:  1,
		Indent:    1,
	})
	if err != nil {
		return fmt.Errorf("attach overview page for module %d: %w", module.Number, err)
	}
	stats.ModuleItemsCreated++
	return nil
}

// renderOverviewBody fills the overview page template's four markers.
// Content items carrying a #new_page anchor are pointed at the child
// page created for their link title.
func renderOverviewBody(courseID int, module *plan.Module, pageTemplate string) string {
	overview := ""
	if module.Overview != "" {
		overview = "<p>" + module.Overview + "</p>"
	}

	var objectives strings.Builder
	objectives.WriteString("<p>By the end of this module, you will be able to:</p><ul>")
	for _, objective := range module.Objectives {
		objectives.WriteString("<li>")
		objectives.WriteString(objective)
		objectives.WriteString("</li>")
	}
	objectives.WriteString("</ul>")

	var content strings.Builder
	content.WriteString("<ul>")
	for _, item := range module.Content {
		if strings.Contains(item, "#new_page") {
			item = resolveNewPageLink(courseID, module, item)
		}
		content.WriteString("<li>")
		content.WriteString(item)
		content.WriteString("</li>")
	}
	content.WriteString("</ul>")

	var assessments strings.Builder
	assessments.WriteString("<ul>")
	for _, assessment := range module.Assessments {
		assessments.WriteString(fmt.Sprintf("<li><a href='%s'>%s</a></li>", assessment.Link, assessment.Name))
	}
	assessments.WriteString("</ul>")

	body := strings.ReplaceAll(pageTemplate, "[overview]", overview)
	body = strings.ReplaceAll(body, "[objectives]", objectives.String())
	body = strings.ReplaceAll(body, "[content]", content.String())
	body = strings.ReplaceAll(body, "[assessments]", assessments.String())
	return body
}

func resolveNewPageLink(courseID int, module *plan.Module, item string) string {
	title := ""
	if m := anchorTextRe.FindStringSubmatch(item); m != nil {
		title = m[1]
	}
	for _, page := range module.Pages {
		if page.Title == title && page.URL != "" {
			return strings.ReplaceAll(item, "#new_page",
				fmt.Sprintf("/courses/%d/pages/%s", courseID, page.URL))
		}
	}
	if title != "" {
		return strings.ReplaceAll(item, "#new_page", "#"+title)
	}
	return item
}
