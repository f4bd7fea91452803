package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ligustah/mapleads/internal/form"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitWebhookError     = 3
	ExitFormatError      = 4
	ExitStorageError     = 5
	ExitQuotaExhausted   = 6
	ExitValidationFailed = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "submit":
		return runSubmit(cmdArgs)
	case "status":
		return runStatus(cmdArgs)
	case "reset":
		return runReset(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: mapleads <command> [options]

Commands:
  submit    Request Google Maps leads from the webhook and save them as CSV
  status    Show how many free searches are left
  reset     Restore the free search counter

Run 'mapleads <command> -h' for command-specific help.`)
}

// exitCode maps a submission error to the process exit code.
func exitCode(err error) int {
	var (
		validationErr *form.ValidationError
		transportErr  *form.TransportError
		formatErr     *form.FormatError
		storageErr    *form.StorageError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, form.ErrQuotaExhausted):
		return ExitQuotaExhausted
	case errors.As(err, &validationErr):
		return ExitValidationFailed
	case errors.As(err, &transportErr):
		return ExitWebhookError
	case errors.As(err, &formatErr):
		return ExitFormatError
	case errors.As(err, &storageErr):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
