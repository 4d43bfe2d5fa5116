package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/stepmigrate/internal/migration"
)

// Journal records the hooks invoked on recording units, in call order, as
// "<hook>:<version>" entries.
type Journal struct {
	mu    sync.Mutex
	calls []string
}

// Add appends a call entry.
func (j *Journal) Add(hook string, v migration.Version) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, fmt.Sprintf("%s:%s", hook, v))
}

// Calls returns a copy of the recorded entries.
func (j *Journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

// Count returns how many times hook ran for v.
func (j *Journal) Count(hook string, v migration.Version) int {
	want := fmt.Sprintf("%s:%s", hook, v)
	n := 0
	for _, call := range j.Calls() {
		if call == want {
			n++
		}
	}
	return n
}

// Reset forgets every recorded entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = nil
}

// RecordingUnit is a migration unit that logs every hook to a Journal and
// returns the configured errors.
type RecordingUnit struct {
	Version         migration.Version
	Journal         *Journal
	UpErr           error
	DownErr         error
	UpRollbackErr   error
	DownRollbackErr error

	// OnUp runs inside Up before it returns, e.g. to cancel a context mid-step.
	OnUp func()
}

var (
	_ migration.Unit           = (*RecordingUnit)(nil)
	_ migration.UpRollbacker   = (*RecordingUnit)(nil)
	_ migration.DownRollbacker = (*RecordingUnit)(nil)
	_ migration.Describer      = (*RecordingUnit)(nil)
)

// Up records the call and returns UpErr.
func (u *RecordingUnit) Up(context.Context) error {
	u.Journal.Add("up", u.Version)
	if u.OnUp != nil {
		u.OnUp()
	}
	return u.UpErr
}

// Down records the call and returns DownErr.
func (u *RecordingUnit) Down(context.Context) error {
	u.Journal.Add("down", u.Version)
	return u.DownErr
}

// UpRollback records the call and returns UpRollbackErr.
func (u *RecordingUnit) UpRollback(context.Context) error {
	u.Journal.Add("up_rollback", u.Version)
	return u.UpRollbackErr
}

// DownRollback records the call and returns DownRollbackErr.
func (u *RecordingUnit) DownRollback(context.Context) error {
	u.Journal.Add("down_rollback", u.Version)
	return u.DownRollbackErr
}

// Description names the unit after its version.
func (u *RecordingUnit) Description() string {
	return "unit " + string(u.Version)
}

// UnitSet is a registry of recording units sharing one journal.
type UnitSet struct {
	Registry *migration.Registry
	Journal  *Journal
	Units    map[migration.Version]*RecordingUnit
}

// NewUnitSet registers one RecordingUnit per version. It panics on invalid
// versions, which is a bug in the calling test.
func NewUnitSet(versions ...migration.Version) *UnitSet {
	set := &UnitSet{
		Registry: migration.NewRegistry(),
		Journal:  &Journal{},
		Units:    make(map[migration.Version]*RecordingUnit, len(versions)),
	}
	for _, v := range versions {
		unit := &RecordingUnit{Version: v, Journal: set.Journal}
		set.Units[v] = unit
		set.Registry.MustRegister(v, migration.Static(unit))
	}
	return set
}
