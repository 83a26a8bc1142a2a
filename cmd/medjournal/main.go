package main

import (
	"fmt"
	"os"

	"github.com/terraincognita07/medjournal/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "medjournal: %v\n", err)
		os.Exit(1)
	}
}
