package persist

import "errors"

var (
	// ErrBadHeader is returned when an opened database's metadata header
	// does not match what the caller expected.
	ErrBadHeader = errors.New("persist: database header does not match the expected header")

	// ErrBadVersion is returned when an opened database's metadata version
	// does not match what the caller expected.
	ErrBadVersion = errors.New("persist: database version does not match the expected version")
)

// Metadata identifies the contents and version of a persisted file so a
// later open can detect a mismatched or stale store before trusting its
// contents (spec.md §6 "Persistence boundary (optional)").
type Metadata struct {
	Header  string
	Version string
}

// persistDir names the temp-directory namespace build.TempDir uses for
// this package's tests.
const persistDir = "persist"
