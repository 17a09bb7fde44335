// Command rgt-idx-sort sorts a raw log index by timestamp.
package main

import (
	"os"

	"github.com/eunmann/rgt-idx/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.ToolSort, os.Args[1:]))
}
