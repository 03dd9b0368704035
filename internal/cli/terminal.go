package cli

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// TerminalPassword reads passwords from fd with echo disabled. It returns nil
// when fd is not a terminal so the shell falls back to line input.
func TerminalPassword(fd int, out io.Writer) PasswordReader {
	if !term.IsTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
}
