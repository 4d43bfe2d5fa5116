package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/stepmigrate/internal/config"
)

type ConfigOptions struct {
	*DefaultOptions
}

var _ CmdOptions = &ConfigOptions{}

func (*ConfigOptions) Complete() error { return nil }

func (*ConfigOptions) Validate() error { return nil }

// Run prints the resolved configuration as TOML.
func (o *ConfigOptions) Run(context.Context, ...string) error {
	raw, err := config.Render(o.Config)
	if err != nil {
		return err
	}

	if p := o.Config.Path(); p != "" {
		o.Printf("# loaded from %s\n", p)
	}
	o.Printf("%s", raw)
	return nil
}

func newConfigCommand(defaults *DefaultOptions) *cobra.Command {
	o := &ConfigOptions{DefaultOptions: defaults}

	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Check(ExecuteCommand(cmd.Context(), o))
		},
	}
}
