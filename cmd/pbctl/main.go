// Command pbctl is the page builder's operator command line.
package main

import (
	"os"

	"pagebuilder/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
