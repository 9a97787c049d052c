package main

import (
	"fmt"
	"os"
)

func main() {
	root := buildRootCmd(defaultOptions(os.Getenv))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stosh:", err)
		os.Exit(1)
	}
}
