package cli

import "github.com/nhle/threadboard/internal/ingest"

// Exit codes.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitUserError covers everything the user has to fix: bad flags,
	// unknown boards or cards, unreadable or empty review directories.
	ExitUserError = 1

	// ExitRetryable indicates that storage could not complete the
	// operation; running the same command again may succeed.
	ExitRetryable = 2
)

// ExitCode maps a command error to the process exit status. Storage
// failures surfaced by ingestion are retryable; every other error is
// reported as a user error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case ingest.IsRetryable(err):
		return ExitRetryable
	default:
		return ExitUserError
	}
}
