package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// TerminalUserAuthenticator implements auth.UserAuthenticator prompting the terminal for input.
type TerminalUserAuthenticator struct {
	PhoneNumber string // optional, will be prompted if empty
	In          *bufio.Reader
	Out         io.Writer
}

func (a TerminalUserAuthenticator) reader() *bufio.Reader {
	if a.In != nil {
		return a.In
	}
	return bufio.NewReader(os.Stdin)
}

func (a TerminalUserAuthenticator) writer() io.Writer {
	if a.Out != nil {
		return a.Out
	}
	return os.Stdout
}

func (a TerminalUserAuthenticator) prompt(label string) (string, error) {
	fmt.Fprint(a.writer(), label)
	line, err := a.reader().ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (TerminalUserAuthenticator) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("signing up not implemented in Terminal")
}

func (TerminalUserAuthenticator) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a TerminalUserAuthenticator) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	fmt.Fprintln(a.writer())
	fmt.Fprintln(a.writer(), "A verification code has been sent to your phone via Telegram.")
	return a.prompt("Enter code: ")
}

func (a TerminalUserAuthenticator) Phone(_ context.Context) (string, error) {
	if a.PhoneNumber != "" {
		return a.PhoneNumber, nil
	}
	return a.prompt("Enter phone in international format (e.g. +1234567890): ")
}

func (a TerminalUserAuthenticator) Password(_ context.Context) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return a.prompt("Enter 2FA password: ")
	}
	fmt.Fprint(a.writer(), "Enter 2FA password: ")
	bytePwd, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.writer())
	return strings.TrimSpace(string(bytePwd)), nil
}
