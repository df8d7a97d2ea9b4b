package main

import (
	"github.com/cwio/morsewav/cmd"
	"github.com/cwio/morsewav/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
