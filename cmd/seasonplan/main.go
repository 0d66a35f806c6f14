package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vsinha/seasonplan/pkg/interfaces/cli/commands"
)

func main() {
	if err := commands.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
