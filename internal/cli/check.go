package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/stepmigrate/internal/migration"
)

const DefaultErrorExitCode = 1

var (
	// errHandler is the function used to handle cli errors.
	errHandler = FatalErrHandler

	// errWriter is used to output cli error messages.
	errWriter io.Writer = os.Stderr
)

// SetErrorHandler overrides the default FatalErrHandler.
func SetErrorHandler(f func(string, int)) {
	errHandler = f
}

// ResetErrorHandler restores the default error handler.
func ResetErrorHandler() {
	errHandler = FatalErrHandler
}

// SetErrWriter overrides the default error output writer os.Stderr.
func SetErrWriter(w io.Writer) {
	errWriter = w
}

// ResetErrWriter restores the default error output writer.
func ResetErrWriter() {
	errWriter = os.Stderr
}

// FatalErrHandler prints msg and exits with code.
func FatalErrHandler(msg string, code int) {
	printError(msg)

	//nolint:revive // Intentional exit after fatal error.
	os.Exit(code)
}

// PrintErrHandler prints msg without exiting.
func PrintErrHandler(msg string, _ int) {
	printError(msg)
}

func printError(msg string) {
	if len(msg) == 0 {
		return
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprint(errWriter, msg)
}

// Check prints a user-friendly message for err and invokes the error handler.
//
// With FatalErrHandler the program exits before Check returns.
func Check(err error) error {
	if err != nil {
		errHandler(Message(err), DefaultErrorExitCode)
	}
	return err
}

// Message renders err for the terminal, with a hint on how to recover.
func Message(err error) string {
	var migErr *migration.MigrationError
	hasUnit := errors.As(err, &migErr)

	switch {
	case errors.Is(err, migration.ErrLockContention):
		return "stepmigrate: another migration run holds the lock\nWait for it to finish. A lock file left by a crashed run may be removed by hand."
	case errors.Is(err, migration.ErrCorruptVersionState):
		return "stepmigrate: " + err.Error() + "\nRestore the missing migration, or run 'stepmigrate clean --yes' to start over."
	case errors.Is(err, migration.ErrOneWayMigration) && hasUnit:
		return fmt.Sprintf("stepmigrate: migration %s cannot be reverted\nThe version was left at %s.", migErr.Version, migErr.Version)
	case errors.Is(err, migration.ErrUnknownMigration):
		return "stepmigrate: " + err.Error() + "\nRun 'stepmigrate status' to list known versions."
	case errors.Is(err, migration.ErrCanceled):
		return "stepmigrate: " + err.Error() + "\nRun the command again to continue."
	case errors.Is(err, migration.ErrInvalidVersion):
		return "stepmigrate: " + err.Error() + "\nVersions look like 20240131_235959, or use 'latest' or '0'."
	}

	msg := err.Error()
	if hasUnit && migErr.RollbackErr != nil {
		msg += "\nThe rollback hook also failed; the migrated system may need manual repair."
	}
	if !strings.HasPrefix(msg, "stepmigrate: ") {
		msg = "stepmigrate: " + msg
	}
	return msg
}
