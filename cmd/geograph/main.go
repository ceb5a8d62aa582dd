// Command geograph saves, finds and deletes JSON graphs in Neo4j and
// PostGIS.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/geograph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
