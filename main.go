package main

import (
	"github.com/CMihai998/wg-dynamic/cmd"
)

func main() {
	cmd.Execute()
}
