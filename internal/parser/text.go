// Package parser turns an extracted alignment-grid document into the
// canonical course build request, rule-first with a confidence signal for
// the fallback gate.
package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bulletPrefixRe    = regexp.MustCompile(`^[\-*\x{2022}]+\s*`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
	trailingParenRe   = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	trailingNumberRe  = regexp.MustCompile(`\s+\d+(?:\.\d+)*\s*$`)
	parentheticalRe   = regexp.MustCompile(`\([^)]*\)`)
	spaceBeforeColon  = regexp.MustCompile(`\s+:`)
	markdownLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	bareURLRe         = regexp.MustCompile(`(^|[^">])(https?://[^\s)"<]+)`)
	fileMarkerRe      = regexp.MustCompile(`(?i)\bfile\s*:\s*(\d+)\b`)
	newPageMarkerRe   = regexp.MustCompile(`(?i)\(new_page\)`)
)

// normalizeText cleans one cell or paragraph fragment: exotic whitespace
// and dashes, bullet glyphs, collapsed spacing.
func normalizeText(value string) string {
	replacer := strings.NewReplacer(
		"\u00a0", " ",
		"\u2013", "-",
		"\u2014", "-",
		"\uf0b7", " ",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	value = bulletPrefixRe.ReplaceAllString(value, "")
	value = whitespaceRe.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// stripObjectiveNoise drops trailing parenthetical references, trailing
// enumeration numbers and trailing punctuation from an objective line.
// The strips repeat until nothing changes, so stacked noise like
// "(see p.2) 1." comes off layer by layer.
func stripObjectiveNoise(value string) string {
	value = normalizeText(value)
	for {
		prev := value
		value = strings.TrimSpace(trailingParenRe.ReplaceAllString(value, ""))
		value = strings.TrimSpace(trailingNumberRe.ReplaceAllString(value, ""))
		value = strings.TrimRight(value, ".,;:")
		if value == prev {
			return value
		}
	}
}

// stripModuleNotes removes parenthetical notes from a module name and
// canonicalizes the "Module N" prefix casing.
func stripModuleNotes(value string) string {
	value = normalizeText(value)
	value = parentheticalRe.ReplaceAllString(value, "")
	value = spaceBeforeColon.ReplaceAllString(value, ":")
	value = strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " "))
	if strings.HasPrefix(strings.ToUpper(value), "MODULE ") {
		value = "Module " + value[7:]
	}
	return value
}

// valueAfterLabel finds "Label: value" in a text block, case-insensitive,
// value running to end of line.
func valueAfterLabel(text, label string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*(.+)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return normalizeText(match[1])
}

// splitItems breaks a multi-line cell into items: one per line, lines
// further split on pipes.
func splitItems(text string) []string {
	raw := strings.ReplaceAll(text, "\r", "\n")
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		line = normalizeText(line)
		if line == "" {
			continue
		}
		for _, part := range strings.Split(line, "|") {
			if part = normalizeText(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

// replaceInlineLinks converts markdown links, then bare URLs, to anchors.
// The bare-URL pass skips URLs already sitting inside an anchor by
// refusing matches preceded by a quote or tag close.
func replaceInlineLinks(text string) string {
	text = markdownLinkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = bareURLRe.ReplaceAllString(text, `$1<a href="$2">$2</a>`)
	return text
}

// parseFileMarker extracts a file:<id> token, returning the cleaned display
// name and the Canvas file id.
func parseFileMarker(item string) (string, int, bool) {
	match := fileMarkerRe.FindStringSubmatch(item)
	if match == nil {
		return "", 0, false
	}
	var fileID int
	fmt.Sscanf(match[1], "%d", &fileID)
	name := fileMarkerRe.ReplaceAllString(item, "")
	name = normalizeText(strings.Trim(name, " -:"))
	if name == "" {
		name = fmt.Sprintf("File %d", fileID)
	}
	return name, fileID, true
}

// parseModuleObjectives splits and cleans a module objectives cell.
func parseModuleObjectives(text string) []string {
	var out []string
	for _, item := range splitItems(text) {
		if cleaned := stripObjectiveNoise(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
