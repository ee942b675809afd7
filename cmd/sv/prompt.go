package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"sharevault/internal/app"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// passphrase returns $SV_PASSPHRASE when set, otherwise prompts on w and
// reads a line from the terminal without echo. With confirm set the user
// must type it twice.
func passphrase(w io.Writer, prompt string, confirm bool) (string, error) {
	if p, ok := os.LookupEnv(app.EnvPassphrase); ok {
		return p, nil
	}

	first, err := promptHidden(w, prompt)
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}
	second, err := promptHidden(w, "Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

func promptHidden(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
