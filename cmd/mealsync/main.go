// Command mealsync tracks meals received from food vendors and serves the
// meal log API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/mealsync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
