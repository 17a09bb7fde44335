// Command rgt-idx-vrfy checks that a raw log index is sorted.
package main

import (
	"os"

	"github.com/eunmann/rgt-idx/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.ToolVrfy, os.Args[1:]))
}
