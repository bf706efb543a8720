package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	imageeraser "github.com/menta2k/image-eraser"
)

func main() {
	root := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(imageeraser.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
