// Package main provides tb, saved task views with filters, sorting and
// cross-view record lookup.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/calvinalkan/taskboard/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	code := cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, cli.Environ(os.Environ()), sigCh)

	signal.Stop(sigCh)
	os.Exit(code)
}
