// Package main is the entry point for the tablebuilder CLI binary.
package main

import (
	"os"

	cli "tablebuilder/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
