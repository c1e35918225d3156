package main

import (
	"os"

	"github.com/kilianp07/induction/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
