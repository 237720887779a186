// Command goals tracks whether a daily goal was completed on each day.
package main

import (
	"os"

	"github.com/nhle/goal-tracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
