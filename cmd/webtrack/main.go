package main

import (
	"fmt"
	"os"

	"github.com/nv4818/webtrack/internal/cli"
)

var version = "0.4.2"

func main() {
	if err := cli.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "webtrack: %v\n", err)
		os.Exit(1)
	}
}
