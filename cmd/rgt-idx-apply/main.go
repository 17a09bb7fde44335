// Command rgt-idx-apply rewrites a raw log in index order.
package main

import (
	"os"

	"github.com/eunmann/rgt-idx/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.ToolApply, os.Args[1:]))
}
