// Package cli provides line-oriented terminal prompts for setup wizards.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from In and writes questions to Out. Once In is
// exhausted every prompt returns its default.
type Prompter struct {
	In      io.Reader
	Out     io.Writer
	scanner *bufio.Scanner
	eof     bool
}

// DefaultPrompter returns a Prompter connected to stdin/stdout.
func DefaultPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

func (p *Prompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

// readLine returns the next trimmed line, or "" once input is exhausted.
func (p *Prompter) readLine() string {
	if p.eof {
		return ""
	}
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	if !p.scanner.Scan() {
		p.eof = true
		return ""
	}
	return strings.TrimSpace(p.scanner.Text())
}

// Ask prints question with its default and returns the answer, or
// defaultVal when the answer is blank.
func (p *Prompter) Ask(question, defaultVal string) string {
	if defaultVal != "" {
		p.printf("%s [%s]: ", question, defaultVal)
	} else {
		p.printf("%s: ", question)
	}
	if line := p.readLine(); line != "" {
		return line
	}
	return defaultVal
}

// AskValid repeats Ask until validate accepts the answer. After input is
// exhausted it returns defaultVal without validating it.
func (p *Prompter) AskValid(question, defaultVal string, validate func(string) error) string {
	for {
		ans := p.Ask(question, defaultVal)
		if p.eof {
			return defaultVal
		}
		err := validate(ans)
		if err == nil {
			return ans
		}
		p.printf("  %v\n", err)
	}
}

// AskSecret reads a line without echo when In is a terminal.
func (p *Prompter) AskSecret(question string) string {
	p.printf("%s: ", question)

	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		p.printf("\n")
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return p.readLine()
}

// Choose lists options and returns the one picked by number or by name.
func (p *Prompter) Choose(question string, options []string, defaultIdx int) string {
	p.printf("%s\n", question)
	for i, opt := range options {
		marker := "  "
		if i == defaultIdx {
			marker = "> "
		}
		p.printf("%s%d) %s\n", marker, i+1, opt)
	}

	pick := func(ans string) error {
		if choiceIndex(ans, options) < 0 {
			return fmt.Errorf("enter a number between 1 and %d", len(options))
		}
		return nil
	}
	ans := p.AskValid("Choice", fmt.Sprint(defaultIdx+1), pick)
	if i := choiceIndex(ans, options); i >= 0 {
		return options[i]
	}
	return options[defaultIdx]
}

func choiceIndex(ans string, options []string) int {
	var n int
	if _, err := fmt.Sscan(ans, &n); err == nil && fmt.Sprint(n) == ans {
		if n >= 1 && n <= len(options) {
			return n - 1
		}
		return -1
	}
	for i, opt := range options {
		if strings.EqualFold(ans, opt) {
			return i
		}
	}
	return -1
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, defaultYes bool) bool {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	ans := p.Ask(fmt.Sprintf("%s [%s]", question, hint), "")
	if ans == "" {
		return defaultYes
	}
	return strings.HasPrefix(strings.ToLower(ans), "y")
}
