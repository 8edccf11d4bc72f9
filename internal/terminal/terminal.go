// Package terminal reads secrets from the user and tidies up after prompts.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadSecret prompts on out and reads one line from in. On a terminal the
// input is not echoed; otherwise the echoed prompt and answer are cleared
// afterwards so the secret does not stay on screen.
func ReadSecret(in *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	ClearPreviousLines(out, len(prompt)+len(line))
	return line, nil
}

// ClearPreviousLines clears textLength characters of previously printed text,
// counting line wraps at the current terminal width (80 when unknown) plus the
// line left behind by Enter.
func ClearPreviousLines(out io.Writer, textLength int) {
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width
	}
	totalLines := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if totalLines < 1 {
		totalLines = 1
	}
	linesToClear := totalLines + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(out, "\r\x1b[2K") // start of line, clear it
		if i < linesToClear-1 {
			fmt.Fprint(out, "\x1b[1A") // up one line
		}
	}
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
