// gorelay - a bidirectional, multi-client TCP stream relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gorelay/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gorelay: %v\n", err)
		os.Exit(1)
	}
}
