// Command hrflow runs the HR attrition analytics pipeline.
package main

import (
	"os"

	"github.com/driftline-labs/hrflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
