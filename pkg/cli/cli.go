package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/nftbarter/tradeloop-engine/types"
)

// exit codes
// inspired by sysexits.h
const (
	ExitCodeGeneral        = 1 // Not in sysexits.h, but is standard practice.
	ExitCodeNotFound       = 2
	ExitCodeCancelled      = 3
	ExitCodeForbidden      = 4
	ExitCodeTemporaryError = 5
	ExitCodeUsage          = 64 // EX_USAGE in sysexits.h
)

// Die prints its arguments to stderr, then exits the program with the default
// error code.
func Die(args ...interface{}) {
	DieWithExitCode(ExitCodeGeneral, args...)
}

// DieWithError exits with an error, picking the exit code that best matches
// the error's meaning instead of always using the general one.
func DieWithError(description string, err error) {
	switch {
	case errors.Is(err, types.ErrUnknownTenant):
		DieWithExitCode(ExitCodeNotFound, description, err)
	case errors.Is(err, types.ErrQuotaExceeded):
		DieWithExitCode(ExitCodeForbidden, description, err)
	case errors.Is(err, types.ErrTimeout):
		DieWithExitCode(ExitCodeTemporaryError, description, err)
	default:
		DieWithExitCode(ExitCodeGeneral, description, err)
	}
}

// DieWithExitCode prints its arguments to stderr,
// then exits the program with the given exit code.
func DieWithExitCode(code int, args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(code)
}
