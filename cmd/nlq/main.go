// cmd/nlq/main.go
package main

import (
	"os"

	"chatdb-workers/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
