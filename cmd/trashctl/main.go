package main

import (
	"os"

	"github.com/junker098/universe-app/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
