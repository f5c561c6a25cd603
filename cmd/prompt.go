// ABOUTME: Password input for the CLI
// ABOUTME: Reads without echo from the terminal, or one line from stdin

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	// stdin is replaced in tests
	stdin io.Reader = os.Stdin

	// readPassword prompts on stderr and reads without echo. Replaced in tests.
	readPassword = func(prompt string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", errors.New("stdin is not a terminal; use --password-stdin")
		}
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
)

// readStdinLine reads the first line of stdin, without the line ending
func readStdinLine() (string, error) {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// password returns the password from stdin or an interactive prompt
func password(fromStdin bool, prompt string) (string, error) {
	if fromStdin {
		return readStdinLine()
	}
	return readPassword(prompt)
}

// newPassword is password plus confirmation. From stdin the single line
// serves as both.
func newPassword(fromStdin bool) (string, string, error) {
	if fromStdin {
		pwd, err := readStdinLine()
		return pwd, pwd, err
	}
	pwd, err := readPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", "", err
	}
	return pwd, confirm, nil
}
