package main

import (
	"os"

	"github.com/Kurukshetran/nl2sql/cmd"
	"github.com/Kurukshetran/nl2sql/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}
