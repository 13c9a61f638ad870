package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aops-ba/testenv/internal/cli"
)

// version is set with -ldflags "-X main.version=..." at release time.
var version string = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := cli.New(version).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
