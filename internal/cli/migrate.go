package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/stepmigrate/internal/migration"
)

// TargetLatest selects the highest known version.
const TargetLatest = "latest"

type MigrateOptions struct {
	*DefaultOptions
}

var _ CmdOptions = &MigrateOptions{}

func (*MigrateOptions) Complete() error { return nil }

func (*MigrateOptions) Validate() error { return nil }

// Run migrates to the version named by args[0], or to the latest version.
func (o *MigrateOptions) Run(ctx context.Context, args ...string) (err error) {
	rt, err := o.runtime(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, rt.Close()) }()

	target := migration.Version(TargetLatest)
	if len(args) > 0 {
		target = migration.Version(strings.TrimSpace(args[0]))
	}
	if target == TargetLatest {
		target = rt.Catalog.Latest()
	}

	reached, err := rt.Engine.MigrateToVersion(o.loggingContext(ctx), target)
	if err != nil {
		return err
	}

	from, _ := rt.Engine.InitialVersion()

	if reached == from {
		o.Printf("already at version %s\n", reached)
		return nil
	}
	o.Printf("migrated from %s to %s\n", from, reached)
	return nil
}

func newMigrateCommand(defaults *DefaultOptions) *cobra.Command {
	o := &MigrateOptions{DefaultOptions: defaults}

	return &cobra.Command{
		Use:   "migrate [target|latest]",
		Short: "Apply or revert migrations until the target version is reached",
		Long: `Apply or revert migrations one step at a time until the version store holds
the target. The target defaults to the latest known version; '0' reverts
every migration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Check(ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
