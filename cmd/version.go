package main

import (
	"os"

	merkle "github.com/0xPolygon/cdk-merkle"
	"github.com/urfave/cli/v2"
)

func versionCmd(*cli.Context) error {
	merkle.PrintVersion(os.Stdout)
	return nil
}
