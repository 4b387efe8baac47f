package auth

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordFunc returns the password of username.
type PasswordFunc func(username string) (string, error)

// ttyPath is the controlling terminal. Prompts go there so they still work
// when stdout is redirected to a file.
const ttyPath = "/dev/tty"

// ReadSecret prints prompt on the controlling terminal and reads a line
// without echoing it.
func ReadSecret(prompt string) (string, error) {
	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", ErrNoTerminal
		}

		return readSecretFrom(os.Stdin, os.Stderr, prompt)
	}
	defer tty.Close()

	return readSecretFrom(tty, tty, prompt)
}

func readSecretFrom(in *os.File, out *os.File, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	b, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("auth: reading password: %w", err)
	}

	return strings.TrimRight(string(b), "\r\n"), nil
}

// EnvOrPrompt reads the password from the environment variable envName,
// falling back to a masked prompt on the terminal.
func EnvOrPrompt(envName string) PasswordFunc {
	return func(username string) (string, error) {
		if pw, ok := os.LookupEnv(envName); ok {
			return pw, nil
		}

		return ReadSecret("Password for Shanoir user " + username + ": ")
	}
}

// StaticPassword always returns pw. Useful for scripted callers and tests.
func StaticPassword(pw string) PasswordFunc {
	return func(string) (string, error) {
		return pw, nil
	}
}
