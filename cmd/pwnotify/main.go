package main

import (
	"fmt"
	"os"

	"pwnotify/cmd/pwnotify/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
