package main

import (
	"errors"
	"os"

	"github.com/yndnr/prodadmin-go/internal/cli/command"
	"github.com/yndnr/prodadmin-go/internal/core/domain"
)

// Exit codes.
const (
	exitError        = 1
	exitUnauthorized = 2
	exitUnavailable  = 3
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrForbidden):
		return exitUnauthorized
	case errors.Is(err, domain.ErrNetworkUnavailable),
		errors.Is(err, domain.ErrTimeout):
		return exitUnavailable
	default:
		return exitError
	}
}
