// Command rgt-idx-make builds a timestamp index from a raw log.
package main

import (
	"os"

	"github.com/eunmann/rgt-idx/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.ToolMake, os.Args[1:]))
}
