package main

import (
	"os"

	"github.com/simonjohansson/taskboard/internal/taskboard"
)

func main() {
	os.Exit(taskboard.Run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}
