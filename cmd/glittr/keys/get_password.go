package keys

import (
	"crypto/subtle"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// GetPassword prompts for a password without echoing it.
func GetPassword(prompt string) ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return nil, errors.New("a terminal is required to enter the password")
	}
	initialTermState, err := term.GetState(fd)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Restore the terminal on interrupt.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer close(c)
	defer signal.Stop(c)
	go func() {
		if _, ok := <-c; ok {
			_ = term.Restore(fd, initialTermState)
			os.Exit(1)
		}
	}()

	fmt.Print(prompt)
	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return password, nil
}

// GetNewPassword prompts for a password twice and fails if the entries
// differ.
func GetNewPassword() ([]byte, error) {
	password, err := GetPassword("Enter password for the key file: ")
	if err != nil {
		return nil, err
	}
	confirmPassword, err := GetPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(password, confirmPassword) != 1 {
		return nil, errors.New("passwords are not identical")
	}
	return password, nil
}
