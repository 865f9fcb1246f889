// Command brahma translates kernel queries and runs them on the host
// reference driver.
//
// Usage:
//
//	brahma [--format text|json] [-v] <command> [args]
//
// Examples:
//
//	brahma validate ./kernels
//	brahma translate ./kernels --kernel scale --backend glsl
//	brahma run ./scenarios/copy.yaml
//	brahma test ./scenarios
//	brahma archive ./brahma.db
//	brahma devices
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquavit/Brahma-sub001/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
