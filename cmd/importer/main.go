// Command importer interprets bank statement exports: it previews the detected
// column mapping, parses statements into transactions and sweeps an inbox directory.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
