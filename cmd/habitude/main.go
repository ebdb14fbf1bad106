// Package main is the entry point for the koji-habitude CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/obriencj/koji-habitude-go/cmd/habitude/app"
)

func main() {
	if err := mainRun(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func mainRun() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return app.NewRootCmd().ExecuteContext(ctx)
}
