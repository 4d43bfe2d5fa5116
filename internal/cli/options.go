package cli

import "context"

// BaseOptions defines shared setup and validation logic.
type BaseOptions interface {
	Complete() error // Complete fills in values derived from flags and config.
	Validate() error // Validate checks the options before the command runs.
}

// CmdOptions adds the command logic to BaseOptions.
type CmdOptions interface {
	BaseOptions

	Run(ctx context.Context, args ...string) error
}

// ExecuteCommand completes, validates and runs cmd.
func ExecuteCommand(ctx context.Context, cmd CmdOptions, args ...string) error {
	if err := cmd.Complete(); err != nil {
		return err
	}

	if err := cmd.Validate(); err != nil {
		return err
	}

	return cmd.Run(ctx, args...)
}
