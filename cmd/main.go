package main

import (
	"os"

	merkle "github.com/0xPolygon/cdk-merkle"
	"github.com/0xPolygon/cdk-merkle/config"
	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/urfave/cli/v2"
)

const appName = "merkle"

const (
	flagLeaves       = "leaves"
	flagSum          = "sum"
	flagIndex        = "index"
	flagDir          = "dir"
	flagHeader       = "header"
	flagKeyStorePath = "key-store-path"
	flagPassword     = "password"
)

var (
	configFileFlag = cli.StringSliceFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration file(s)",
		Required: false,
	}
	saveConfigFlag = cli.StringFlag{
		Name:     config.FlagSaveConfigPath,
		Aliases:  []string{"s"},
		Usage:    "Save final configuration into to the indicated path (name: merkle_config.toml)",
		Required: false,
	}
	leavesFlag = cli.StringFlag{
		Name:     flagLeaves,
		Aliases:  []string{"l"},
		Usage:    "File with one hex encoded leaf per line (value,data with --sum)",
		Required: true,
	}
	sumFlag = cli.BoolFlag{
		Name:  flagSum,
		Usage: "Build a sum tree, each line being a decimal value and the hex encoded data",
	}
	indexFlag = cli.Uint64Flag{
		Name:     flagIndex,
		Aliases:  []string{"i"},
		Usage:    "Index of the leaf to prove",
		Required: true,
	}
	dirFlag = cli.StringFlag{
		Name:  flagDir,
		Usage: "Directory of the YAML proof vectors, overrides Vectors.Dir",
	}
	headerFlag = cli.StringFlag{
		Name:     flagHeader,
		Usage:    "JSON file with the block header",
		Required: true,
	}
	keyStorePathFlag = cli.StringFlag{
		Name:  flagKeyStorePath,
		Usage: "Keystore file with the signing key, overrides Signer.Path",
	}
	passwordFlag = cli.StringFlag{
		Name:  flagPassword,
		Usage: "Password of the keystore, overrides Signer.Password",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = merkle.Version
	flags := []cli.Flag{
		&configFileFlag,
		&saveConfigFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  versionCmd,
		},
		{
			Name:   "config",
			Usage:  "Print the default configuration, or the effective one when --cfg is given",
			Action: configCmd,
			Flags:  flags,
		},
		{
			Name:   "root",
			Usage:  "Compute the root of a binary or sum tree",
			Action: rootCmd,
			Flags:  append(flags, &leavesFlag, &sumFlag),
		},
		{
			Name:   "prove",
			Usage:  "Compute the inclusion proof of a leaf of a binary tree",
			Action: proveCmd,
			Flags:  append(flags, &leavesFlag, &indexFlag),
		},
		{
			Name:   "vectors",
			Usage:  "Check the golden binary tree proof vectors",
			Action: vectorsCmd,
			Flags:  append(flags, &dirFlag),
		},
		{
			Name:   "blockid",
			Usage:  "Serialize a block header and compute its id",
			Action: blockIDCmd,
			Flags:  append(flags, &headerFlag),
		},
		{
			Name:   "sign",
			Usage:  "Sign the id of a block header with the configured keystore",
			Action: signCmd,
			Flags:  append(flags, &headerFlag, &keyStorePathFlag, &passwordFlag),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
