package migration

import "context"

// Unit is the forward and backward logic of one migration.
//
// Down returns an error matching ErrIrreversible when the unit cannot be
// reverted. Units must tolerate being run again after a failed attempt.
type Unit interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
}

// UpRollbacker is implemented by units that need cleanup after a failed Up.
type UpRollbacker interface {
	UpRollback(ctx context.Context) error
}

// DownRollbacker is implemented by units that need cleanup after a failed Down.
type DownRollbacker interface {
	DownRollback(ctx context.Context) error
}

// Describer is implemented by units with a human-readable description.
type Describer interface {
	Description() string
}

// Factory builds the unit registered for a version.
type Factory func() (Unit, error)

// Funcs adapts plain functions to a Unit. Nil fields are no-ops, except a nil
// DownFn which makes the unit irreversible.
type Funcs struct {
	Desc           string
	UpFn           func(ctx context.Context) error
	DownFn         func(ctx context.Context) error
	UpRollbackFn   func(ctx context.Context) error
	DownRollbackFn func(ctx context.Context) error
}

var (
	_ Unit           = Funcs{}
	_ UpRollbacker   = Funcs{}
	_ DownRollbacker = Funcs{}
	_ Describer      = Funcs{}
)

// Up runs UpFn.
func (f Funcs) Up(ctx context.Context) error {
	if f.UpFn == nil {
		return nil
	}
	return f.UpFn(ctx)
}

// Down runs DownFn, or reports ErrIrreversible when it is nil.
func (f Funcs) Down(ctx context.Context) error {
	if f.DownFn == nil {
		return ErrIrreversible
	}
	return f.DownFn(ctx)
}

// UpRollback runs UpRollbackFn.
func (f Funcs) UpRollback(ctx context.Context) error {
	if f.UpRollbackFn == nil {
		return nil
	}
	return f.UpRollbackFn(ctx)
}

// DownRollback runs DownRollbackFn.
func (f Funcs) DownRollback(ctx context.Context) error {
	if f.DownRollbackFn == nil {
		return nil
	}
	return f.DownRollbackFn(ctx)
}

// Description returns Desc.
func (f Funcs) Description() string {
	return f.Desc
}

// Static returns a Factory that always yields u.
func Static(u Unit) Factory {
	return func() (Unit, error) { return u, nil }
}

func describe(u Unit) string {
	if d, ok := u.(Describer); ok {
		return d.Description()
	}
	return ""
}

func upRollback(ctx context.Context, u Unit) error {
	if r, ok := u.(UpRollbacker); ok {
		return r.UpRollback(ctx)
	}
	return nil
}

func downRollback(ctx context.Context, u Unit) error {
	if r, ok := u.(DownRollbacker); ok {
		return r.DownRollback(ctx)
	}
	return nil
}
