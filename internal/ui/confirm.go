package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter reads yes/no answers. The zero value uses stdin and stdout.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prompts with a yes/no question. Returns true for yes. A closed
// input counts as no.
func (p Prompter) Confirm(prompt string) bool {
	return p.ask(StyleWarning.Render(prompt))
}

// ConfirmDanger is like Confirm but styled for irreversible actions.
func (p Prompter) ConfirmDanger(prompt string) bool {
	return p.ask(StyleError.Render("⚠ " + prompt))
}

func (p Prompter) ask(styled string) bool {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s [y/N]: ", styled)
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// Confirm asks on stdin/stdout.
func Confirm(prompt string) bool { return Prompter{}.Confirm(prompt) }
