package main

import (
	"github.com/clusterintranet/authgate/cmd/cli"
)

// main is the entry point for the authgate-admin command-line tool.
func main() {
	cli.Execute()
}
