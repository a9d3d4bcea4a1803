package main

import (
	"log"
	"os"

	"github.com/zephyrtronium/linecalc/internal/cli"
)

func main() {
	log.SetFlags(0)
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Print(err)
		os.Exit(cli.GetExitCode(err))
	}
}
