package main

import (
	"os"

	"github.com/gash-io/gash/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
