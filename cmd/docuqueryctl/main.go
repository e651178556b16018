package main

import (
	"os"

	"github.com/kailas-cloud/docuquery/cmd/docuqueryctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
