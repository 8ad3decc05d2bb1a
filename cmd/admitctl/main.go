package main

import (
	"os"

	"github.com/northgrid/admitd/cmd/admitctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
