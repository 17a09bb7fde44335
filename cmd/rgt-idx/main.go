// Command rgt-idx runs the raw log index tools as subcommands.
package main

import (
	"os"

	"github.com/eunmann/rgt-idx/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.ToolAll, os.Args[1:]))
}
