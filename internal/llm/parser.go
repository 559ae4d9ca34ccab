package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/edtools/cagforge/internal/plan"
)

//go:embed instructions.md
var defaultInstructions string

const systemPrompt = "You are a strict extraction engine. Return exactly one JSON object. " +
	"No markdown, no comments, no code fences."

var (
	openFenceRe  = regexp.MustCompile("^```(?:json)?\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```$")
)

// Parser extracts the canonical course shape from a rendered document via
// an external language model.
type Parser struct {
	Completer Completer
}

// LoadInstructions returns the extraction instruction text: the file at
// path when given, otherwise the embedded default template.
func LoadInstructions(path string) (string, error) {
	if path == "" {
		return defaultInstructions, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read instructions: %w", err)
	}
	return string(raw), nil
}

// Parse sends the rendered document with extraction instructions and an
// optional schema hint, then decodes the response as one canonical course.
// Transport errors and malformed output are surfaced, never patched over.
func (p *Parser) Parse(ctx context.Context, renderedDoc, instructions, schemaHint string) (plan.Course, error) {
	var course plan.Course

	var sb strings.Builder
	sb.WriteString("Extract a JSON object for the 'course' payload from the provided document content.\n")
	sb.WriteString("Follow these extraction instructions:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	if schemaHint != "" {
		sb.WriteString("Course schema target (use all keys; unknown values must be empty strings/lists/0):\n")
		sb.WriteString(schemaHint)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Document content:\n")
	sb.WriteString(renderedDoc)
	sb.WriteString("\n")

	raw, err := p.Completer.Complete(ctx, systemPrompt, sb.String())
	if err != nil {
		return course, fmt.Errorf("llm parse: %w", err)
	}

	obj, err := extractJSONObject(raw)
	if err != nil {
		return course, fmt.Errorf("llm parse: %w", err)
	}

	// Accept either {"course": {...}} or the bare course object.
	if inner, ok := obj["course"].(map[string]any); ok {
		obj = inner
	}
	return plan.NormalizeCourse(obj), nil
}

// extractJSONObject tolerates code fences and leading/trailing prose
// around the JSON object the model was told to return.
func extractJSONObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = openFenceRe.ReplaceAllString(text, "")
		text = closeFenceRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("output did not contain a JSON object")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("output JSON was not an object: %w", err)
	}
	return obj, nil
}
