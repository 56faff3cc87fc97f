package main

import (
	"os"

	"github.com/danmuck/paramwire/cmd/paramctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
