package main

import (
	"os"

	sentrycmd "github.com/sentry-vision/management-server/pkg/sentryctl/cmd"
)

func main() {
	root := sentrycmd.NewRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
