// Command cpm runs the Connecting Party Manager registry: the HTTP API, the
// ETL load stage and a few operator reads.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cpm:", err)
		os.Exit(1)
	}
}
