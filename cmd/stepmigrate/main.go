package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/stepmigrate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewDefaultCommand(cli.NewDefaultIOStreams(), os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Sub-commands report their own errors through cli.Check; anything
		// left here comes from cobra itself (unknown command, bad flag).
		stop()
		_ = cli.Check(err)
		os.Exit(cli.DefaultErrorExitCode)
	}
}
