package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/stepmigrate/internal/source"
)

type CreateOptions struct {
	*DefaultOptions

	dir string
}

var _ CmdOptions = &CreateOptions{}

// Complete resolves the migrations directory, honouring the delegate.
func (o *CreateOptions) Complete() error {
	o.dir = o.Config.MigrationsDir
	if o.Delegate.MigrationsDir != nil {
		o.dir = o.Delegate.MigrationsDir()
	}
	return nil
}

func (*CreateOptions) Validate() error { return nil }

// Run scaffolds the scripts of a new migration named after args.
func (o *CreateOptions) Run(_ context.Context, args ...string) error {
	paths, err := source.Scaffold(o.dir, o.now(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	for _, p := range paths {
		o.Printf("created %s\n", p)
	}
	return nil
}

func newCreateCommand(defaults *DefaultOptions) *cobra.Command {
	o := &CreateOptions{DefaultOptions: defaults}

	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create empty up and down scripts for a new migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Check(ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
