package main

import (
	"os"

	"github.com/hostguard/hostguard/cmd/hostguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
