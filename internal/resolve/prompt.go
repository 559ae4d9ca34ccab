package resolve

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalResolver prompts for gap values on a terminal, one line each.
type TerminalResolver struct {
	In  io.Reader
	Out io.Writer
}

var _ Resolver = (*TerminalResolver)(nil)

// NewTerminalResolver prompts on stdin/stderr.
func NewTerminalResolver() *TerminalResolver {
	return &TerminalResolver{In: os.Stdin, Out: os.Stderr}
}

// Resolve asks for each gap in order. An empty answer keeps the gap's
// default (possibly empty); EOF stops prompting and keeps what was read.
func (r *TerminalResolver) Resolve(gaps []Gap) (map[string]string, error) {
	reader := bufio.NewReader(r.In)
	values := make(map[string]string, len(gaps))

	for _, gap := range gaps {
		suffix := ""
		if gap.Default != "" {
			suffix = fmt.Sprintf(" [%s]", gap.Default)
		}
		fmt.Fprintf(r.Out, "%s%s: ", gap.Prompt, suffix)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return values, fmt.Errorf("read input: %w", err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = gap.Default
		}
		if answer != "" {
			values[gap.Field] = answer
		}
		if err == io.EOF {
			break
		}
	}
	return values, nil
}

// StdinIsTerminal reports whether stdin is attached to a TTY; callers use
// it to refuse interactive mode in pipelines.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
