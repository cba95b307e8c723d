package main

import (
	"os"
	"strings"

	"github.com/0xPolygon/cdk-merkle/config"
	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/urfave/cli/v2"
)

func configCmd(cliCtx *cli.Context) error {
	if len(cliCtx.StringSlice(config.FlagCfg)) == 0 {
		// String buffer to concatenate all the default config vars
		defaultConfig := strings.Builder{}
		defaultConfig.WriteString(config.DefaultVars)
		defaultConfig.WriteString(config.DefaultValues)
		_, err := os.Stdout.WriteString(defaultConfig.String())
		return err
	}

	c, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	rendered, err := config.SaveConfigToString(*c)
	if err != nil {
		return err
	}
	_, err = os.Stdout.WriteString(rendered)
	return err
}

// loadConfig loads the configuration and applies it to the logger and the
// tree package
func loadConfig(cliCtx *cli.Context) (*config.Config, error) {
	c, err := config.Load(cliCtx)
	if err != nil {
		return nil, err
	}
	log.Init(c.Log)
	if c.Tree.ParallelLeafThreshold > 0 {
		tree.ParallelLeafThreshold = c.Tree.ParallelLeafThreshold
	}
	return c, nil
}
