package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const checksumWidth = 12

type StatusOptions struct {
	*DefaultOptions
}

var _ CmdOptions = &StatusOptions{}

func (*StatusOptions) Complete() error { return nil }

func (*StatusOptions) Validate() error { return nil }

// Run prints the current version and every known migration.
func (o *StatusOptions) Run(ctx context.Context, _ ...string) (err error) {
	rt, err := o.runtime(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, rt.Close()) }()

	status, err := rt.Engine.Status(o.loggingContext(ctx))
	if err != nil {
		return err
	}

	o.Printf("current version: %s\n", status.Current)
	o.Printf("pending: %d\n", status.Pending)
	if len(status.Entries) == 0 {
		o.Printf("no migrations found in %s\n", rt.MigrationsDir)
		return nil
	}

	w := tabwriter.NewWriter(o.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tCHECKSUM\tDESCRIPTION")
	for _, e := range status.Entries {
		state := "pending"
		if e.Applied {
			state = "applied"
		}

		sum := ""
		if m, ok := rt.Catalog.Lookup(e.Version); ok {
			sum = m.Checksum()
			if len(sum) > checksumWidth {
				sum = sum[:checksumWidth]
			}
			if m.Irreversible {
				state += " (one-way)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Version, state, sum, e.Description)
	}
	return w.Flush()
}

func newStatusCommand(defaults *DefaultOptions) *cobra.Command {
	o := &StatusOptions{DefaultOptions: defaults}

	return &cobra.Command{
		Use:   "status",
		Short: "Show the current version and the state of every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Check(ExecuteCommand(cmd.Context(), o))
		},
	}
}
