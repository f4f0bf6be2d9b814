// Package cliutil holds the plumbing shared by the yyy command line tools:
// password input, publish targets and logger setup.
package cliutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/peerdata/yyy/vault"
)

// Password environment variables.
const (
	EnvDataPassword    = "YYY_DATA_PASSWORD"
	EnvLicensePassword = "YYY_LICENSE_PASSWORD"
)

// ErrNoTerminal is returned when a password must be prompted for but stdin
// is not a terminal.
var ErrNoTerminal = errors.New("password not set and stdin is not a terminal")

// PromptFunc reads one password after showing label.
type PromptFunc func(label string) ([]byte, error)

// TerminalPrompt prompts on out and reads without echo from in.
func TerminalPrompt(in *os.File, out io.Writer) PromptFunc {
	return func(label string) ([]byte, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return nil, ErrNoTerminal
		}
		fmt.Fprintf(out, "%s: ", label)
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return pw, err
	}
}

// PasswordRequest describes which passwords a command needs.
type PasswordRequest struct {
	// Licenses also asks for the license password.
	Licenses bool
	// Confirm prompts twice; used when creating entries.
	Confirm bool
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	Prompt PromptFunc
}

// ReadPasswords takes each password from its environment variable or
// from the prompt. Passwords shorter than vault.MinPasswordLength are refused.
func ReadPasswords(req PasswordRequest) (vault.Passwords, error) {
	getenv := req.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	var pw vault.Passwords
	var err error
	if pw.Data, err = readOne(req, getenv(EnvDataPassword), "Data password"); err != nil {
		return vault.Passwords{}, err
	}
	if req.Licenses {
		if pw.Licenses, err = readOne(req, getenv(EnvLicensePassword), "License password"); err != nil {
			pw.Wipe()
			return vault.Passwords{}, err
		}
	}
	return pw, nil
}

func readOne(req PasswordRequest, env, label string) ([]byte, error) {
	if env != "" {
		return checkLength(label, []byte(env))
	}
	if req.Prompt == nil {
		return nil, ErrNoTerminal
	}
	pw, err := req.Prompt(label)
	if err != nil {
		return nil, err
	}
	if req.Confirm {
		again, err := req.Prompt(label + " (again)")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pw, again) {
			return nil, fmt.Errorf("%s: passwords do not match", label)
		}
	}
	return checkLength(label, pw)
}

func checkLength(label string, pw []byte) ([]byte, error) {
	if len(pw) < vault.MinPasswordLength {
		return nil, fmt.Errorf("%w: %s must have at least %d characters", vault.ErrConfiguration, label, vault.MinPasswordLength)
	}
	return pw, nil
}
