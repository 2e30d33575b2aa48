package build

import (
	"fmt"
	"os"
)

// Critical should be called if a sanity check has failed, indicating a
// developer error or a corrupted graph state that must not be allowed to
// propagate further. In a DEBUG build it panics so the failure is loud
// during development; in a release build it prints to stderr and returns,
// letting the caller's surrounding recovery path (e.g. the Tenant Isolation
// Layer's full-rescan-on-InvariantViolation policy) take over.
func Critical(v ...interface{}) {
	msg := "Critical error: " + fmt.Sprintln(v...)
	if DEBUG {
		panic(msg)
	}
	fmt.Fprint(os.Stderr, msg)
}

// Severe is Critical's sibling for errors that are unexpected but not
// necessarily a sign of corruption - used at call sites (commit-path
// failures deep inside the Graph Store, cache-batch application) where
// panicking in production would take down an otherwise-healthy tenant.
func Severe(v ...interface{}) {
	msg := "Severe error: " + fmt.Sprintln(v...)
	if DEBUG {
		panic(msg)
	}
	fmt.Fprint(os.Stderr, msg)
}

// JoinErrors concatenates the non-nil errors in errs with sep, returning nil
// if none were non-nil.
func JoinErrors(errs []error, sep string) error {
	var msg string
	for _, err := range errs {
		if err == nil {
			continue
		}
		if msg != "" {
			msg += sep
		}
		msg += err.Error()
	}
	if msg == "" {
		return nil
	}
	return errString(msg)
}

type errString string

func (e errString) Error() string { return string(e) }
