package source

import (
	"context"
	"fmt"

	"github.com/example/stepmigrate/internal/migration"
)

// scriptUnit adapts a Migration to migration.Unit.
type scriptUnit struct {
	m    *Migration
	exec *Executor
}

var (
	_ migration.Unit           = (*scriptUnit)(nil)
	_ migration.UpRollbacker   = (*scriptUnit)(nil)
	_ migration.DownRollbacker = (*scriptUnit)(nil)
	_ migration.Describer      = (*scriptUnit)(nil)
)

// NewUnit returns the unit running the scripts of m through exec.
func NewUnit(m *Migration, exec *Executor) migration.Unit {
	return &scriptUnit{m: m, exec: exec}
}

func (u *scriptUnit) Up(ctx context.Context) error {
	return u.run(ctx, KindUp)
}

func (u *scriptUnit) Down(ctx context.Context) error {
	if u.m.Irreversible {
		return fmt.Errorf("%s: %w", u.m.Version, migration.ErrIrreversible)
	}
	return u.run(ctx, KindDown)
}

func (u *scriptUnit) UpRollback(ctx context.Context) error {
	return u.run(ctx, KindUpRollback)
}

func (u *scriptUnit) DownRollback(ctx context.Context) error {
	return u.run(ctx, KindDownRollback)
}

func (u *scriptUnit) Description() string {
	return u.m.Description
}

func (u *scriptUnit) run(ctx context.Context, kind Kind) error {
	script := u.m.Script(kind)
	if script == nil {
		return nil
	}
	return u.exec.Run(ctx, script)
}
