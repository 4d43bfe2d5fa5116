package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var ErrCleanNotConfirmed = errors.New("clean resets the environment and the version; pass --yes to confirm")

type CleanOptions struct {
	*DefaultOptions

	yes bool
}

var _ CmdOptions = &CleanOptions{}

func (*CleanOptions) Complete() error { return nil }

func (o *CleanOptions) Validate() error {
	if !o.yes {
		return ErrCleanNotConfirmed
	}
	return nil
}

// Run resets the environment and the version store.
func (o *CleanOptions) Run(ctx context.Context, _ ...string) (err error) {
	rt, err := o.runtime(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, rt.Close()) }()

	if err := rt.Engine.Clean(o.loggingContext(ctx)); err != nil {
		return err
	}

	o.Printf("environment cleaned, version reset to 0\n")
	return nil
}

func newCleanCommand(defaults *DefaultOptions) *cobra.Command {
	o := &CleanOptions{DefaultOptions: defaults}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Reset the environment and the stored version to 0",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Check(ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().BoolVarP(&o.yes, "yes", "y", false, "confirm the reset")

	return cmd
}
