package block

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xPolygon/cdk-merkle/log"
	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CompactSignatureLength is the size of a signature with the recovery bit
// folded into the highest bit of s
const CompactSignatureLength = 64

const recoveryBit = 0x80

var (
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrValidatorSetHashMismatch = errors.New("validator set does not match header")
	ErrNotEnoughSignatures      = errors.New("signed stake below required stake")
	ErrMismatchedSignatureCount = errors.New("one signature slot per validator expected")
)

// SignBlockID signs the personal message hash of id and returns the compact
// signature r || vs
func SignBlockID(id types.Digest, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(id[:]), key)
	if err != nil {
		return nil, err
	}
	compact := sig[:CompactSignatureLength]
	if sig[crypto.RecoveryIDOffset] == 1 {
		compact[32] |= recoveryBit
	}
	return compact, nil
}

// RecoverSigner returns the address that produced the compact signature of id
func RecoverSigner(id types.Digest, signature []byte) (common.Address, error) {
	if len(signature) != CompactSignatureLength {
		return common.Address{}, fmt.Errorf("%w: %d bytes", ErrInvalidSignature, len(signature))
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[32]&recoveryBit != 0 {
		sig[32] &^= recoveryBit
		sig[crypto.RecoveryIDOffset] = 1
	}
	pubKey, err := crypto.SigToPub(accounts.TextHash(id[:]), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// SignedStake adds the stake of every validator whose slot in signatures holds
// a valid signature of id. Empty slots are skipped.
func SignedStake(id types.Digest, validators []Validator, signatures [][]byte) (*uint256.Int, error) {
	if len(validators) != len(signatures) {
		return nil, fmt.Errorf("%w: %d validators, %d signatures",
			ErrMismatchedSignatureCount, len(validators), len(signatures))
	}
	signed := new(uint256.Int)
	for i := range validators {
		if len(signatures[i]) == 0 {
			continue
		}
		signer, err := RecoverSigner(id, signatures[i])
		if err != nil {
			return nil, err
		}
		if signer != validators[i].Address {
			return nil, fmt.Errorf("%w: slot %d signed by %s, expected %s",
				ErrInvalidSignature, i, signer.Hex(), validators[i].Address.Hex())
		}
		var overflow bool
		signed, overflow = new(uint256.Int).AddOverflow(signed, &validators[i].Stake)
		if overflow {
			return nil, fmt.Errorf("%w: signed stake", types.ErrNumericOverflow)
		}
	}
	return signed, nil
}

// CheckQuorum checks that validators is the validator set of h and that the
// signatures of its id carry at least the required stake
func CheckQuorum(h *Header, validators []Validator, signatures [][]byte) error {
	if hash := HashValidators(validators); hash != h.ValidatorSetHash {
		return fmt.Errorf("%w: %s, header has %s", ErrValidatorSetHashMismatch, hash.Hex(), h.ValidatorSetHash.Hex())
	}
	signed, err := SignedStake(h.ComputeBlockID(), validators, signatures)
	if err != nil {
		return err
	}
	if signed.Lt(&h.RequiredStake) {
		return fmt.Errorf("%w: %s < %s", ErrNotEnoughSignatures, signed.Dec(), h.RequiredStake.Dec())
	}
	return nil
}

// NewKeyFromKeystore decrypts the key stored in the keystore file at path
func NewKeyFromKeystore(path, password string) (*keystore.Key, error) {
	keystoreEncrypted, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	log.Infof("decrypting key from: %v", path)
	key, err := keystore.DecryptKey(keystoreEncrypted, password)
	if err != nil {
		return nil, err
	}
	return key, nil
}
