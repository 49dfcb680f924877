package main

import (
	"os"

	"github.com/groupmix/groupmix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
