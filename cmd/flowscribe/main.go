package main

import (
	"os"

	"github.com/dshills/flowscribe/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
