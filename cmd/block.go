package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/0xPolygon/cdk-merkle/block"
	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

type blockIDOutput struct {
	ID         types.Digest  `json:"id"`
	Serialized hexutil.Bytes `json:"serialized"`
}

type signOutput struct {
	ID        types.Digest   `json:"id"`
	Signer    common.Address `json:"signer"`
	Signature hexutil.Bytes  `json:"signature"`
}

func readHeader(path string) (*block.Header, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	h := &block.Header{}
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, err
	}
	return h, nil
}

func blockIDCmd(cliCtx *cli.Context) error {
	if _, err := loadConfig(cliCtx); err != nil {
		return err
	}
	h, err := readHeader(cliCtx.String(flagHeader))
	if err != nil {
		return err
	}
	return printJSON(blockIDOutput{ID: h.ComputeBlockID(), Serialized: h.Serialize()})
}

func signCmd(cliCtx *cli.Context) error {
	c, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	h, err := readHeader(cliCtx.String(flagHeader))
	if err != nil {
		return err
	}

	path, password := c.Signer.Path, c.Signer.Password
	if cliCtx.IsSet(flagKeyStorePath) {
		path = cliCtx.String(flagKeyStorePath)
	}
	if cliCtx.IsSet(flagPassword) {
		password = cliCtx.String(flagPassword)
	}
	key, err := block.NewKeyFromKeystore(path, password)
	if err != nil {
		return err
	}

	id := h.ComputeBlockID()
	signature, err := block.SignBlockID(id, key.PrivateKey)
	if err != nil {
		return err
	}
	log.Infof("signed block %d with id %s", h.Height, id.Hex())
	return printJSON(signOutput{ID: id, Signer: key.Address, Signature: signature})
}
