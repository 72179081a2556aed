package main

import (
	"os"

	"github.com/idr-analysis/idrconnect/cmd/idrconnect/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
