package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptPassword reads a password without echo when stdin is a terminal,
// and a plain line otherwise (pipes, tests).
func (a *App) promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if a.In != os.Stdin || !term.IsTerminal(fd) {
		return a.prompt("Password")
	}

	fmt.Fprint(w, "Password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
