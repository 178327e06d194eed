package main

import (
	"context"
	"fmt"
	"os"

	"github.com/incomiq/incomiq/internal/app"
	"github.com/incomiq/incomiq/internal/cli"
	"github.com/incomiq/incomiq/internal/config"
	"github.com/incomiq/incomiq/internal/flagx"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	// Everything the config layer consumed is stripped, leaving the
	// command and its own options.
	args := flagx.StripFlags(os.Args[1:], []string{"-f", "-d", "-l", "-m", "-u", "-p", "-b", "-g", "-e"})

	if err := cli.New(a, os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
