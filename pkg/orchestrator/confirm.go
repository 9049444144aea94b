package orchestrator

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer prompts the operator for a yes/no decision.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConsoleConfirmer reads y/yes answers from a terminal.
type ConsoleConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// NewConsoleConfirmer creates a confirmer over the given streams.
func NewConsoleConfirmer(in io.Reader, out io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{In: in, Out: out}
}

// Confirm prints the prompt and reads one line. Anything other than
// y/yes declines.
func (c *ConsoleConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
