package testfixtures

import (
	"strconv"
	"sync"

	"github.com/example/stepmigrate/internal/migration"
)

// RunIDs issues deterministic engine run identifiers "run-1", "run-2", ...
// and remembers them so tests can match history rows and log lines to runs.
type RunIDs struct {
	mu     sync.Mutex
	issued []string
}

// NewRunIDs returns a sequence that starts at run-1.
func NewRunIDs() *RunIDs {
	return &RunIDs{}
}

// Next issues the next identifier.
func (r *RunIDs) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := "run-" + strconv.Itoa(len(r.issued)+1)
	r.issued = append(r.issued, id)
	return id
}

// Issued returns the identifiers handed out so far, oldest first.
func (r *RunIDs) Issued() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.issued...)
}

// Option installs the sequence as the engine's run id generator.
func (r *RunIDs) Option() migration.Option {
	return migration.WithRunIDGenerator(r.Next)
}
