// Command gourmet keeps a local log of restaurant visits.
package main

import (
	"os"

	"github.com/mesh-intelligence/gourmet/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
