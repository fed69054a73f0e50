// disk-analyzer explores the filesystem of a machine running the
// disk-analyzer server.
//
// Sub-commands:
//
//	disk-analyzer info              Describe the explored machine
//	disk-analyzer ls [path]         List a directory
//	disk-analyzer dir [path]        Largest entries of a subtree
//	disk-analyzer report [path]     Listing, summary and repartition
//	disk-analyzer browse [path]     Terminal browser
//	disk-analyzer cache stats|list|clear
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nathsou/disk-analyzer/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
