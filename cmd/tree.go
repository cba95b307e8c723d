package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree"
	"github.com/0xPolygon/cdk-merkle/tree/sum"
	"github.com/0xPolygon/cdk-merkle/tree/testvectors"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/urfave/cli/v2"
)

type rootOutput struct {
	Root      types.Digest `json:"root"`
	NumLeaves int          `json:"numLeaves"`
	Sum       string       `json:"sum,omitempty"`
}

type proofOutput struct {
	Root      types.Digest   `json:"root"`
	Index     uint64         `json:"index"`
	NumLeaves uint64         `json:"numLeaves"`
	ProofSet  []types.Digest `json:"proofSet"`
}

func rootCmd(cliCtx *cli.Context) error {
	if _, err := loadConfig(cliCtx); err != nil {
		return err
	}
	f, err := openLeaves(cliCtx.String(flagLeaves))
	if err != nil {
		return err
	}
	defer f.Close()

	if cliCtx.Bool(flagSum) {
		values, leaves, err := readSumLeaves(f)
		if err != nil {
			return err
		}
		root, total, err := sum.CalcRoot(values, leaves)
		if err != nil {
			return err
		}
		return printJSON(rootOutput{Root: root, NumLeaves: len(leaves), Sum: total.Dec()})
	}

	leaves, err := readLeaves(f)
	if err != nil {
		return err
	}
	return printJSON(rootOutput{Root: tree.CalcRoot(leaves), NumLeaves: len(leaves)})
}

func proveCmd(cliCtx *cli.Context) error {
	if _, err := loadConfig(cliCtx); err != nil {
		return err
	}
	f, err := openLeaves(cliCtx.String(flagLeaves))
	if err != nil {
		return err
	}
	defer f.Close()

	leaves, err := readLeaves(f)
	if err != nil {
		return err
	}
	nodes := tree.ConstructTree(leaves)
	index := cliCtx.Uint64(flagIndex)
	proof, err := tree.GetProof(nodes, index)
	if err != nil {
		return err
	}
	return printJSON(proofOutput{
		Root:      tree.RootOf(nodes),
		Index:     index,
		NumLeaves: tree.LeafCount(nodes),
		ProofSet:  proof,
	})
}

func vectorsCmd(cliCtx *cli.Context) error {
	c, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	dir := c.Vectors.Dir
	if cliCtx.IsSet(flagDir) {
		dir = cliCtx.String(flagDir)
	}

	tests, err := testvectors.LoadProofTests(dir)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		return fmt.Errorf("no vectors found in %s", dir)
	}
	failed := 0
	for _, test := range tests {
		root, data, proof, err := test.Decode()
		if err != nil {
			return fmt.Errorf("vector %s: %w", test.Name, err)
		}
		if got := tree.Verify(root, data, proof, test.ProofIndex, test.NumLeaves); got != test.ExpectedVerification {
			log.Errorf("vector %s: verification returned %t, expected %t", test.Name, got, test.ExpectedVerification)
			failed++
			continue
		}
		log.Debugf("vector %s ok", test.Name)
	}
	log.Infof("checked %d vectors from %s, %d failed", len(tests), dir, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d vectors failed", failed, len(tests))
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
