package testvectors

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xPolygon/cdk-merkle/tree/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"
)

// Encodings supported by EncodedValue
const (
	EncodingHex  = "hex"
	EncodingUTF8 = "utf8"
)

// EncodedValue is a byte string as written in a fixture
type EncodedValue struct {
	Value    string `yaml:"value"`
	Encoding string `yaml:"encoding"`
}

// Bytes decodes the value according to its encoding
func (v EncodedValue) Bytes() ([]byte, error) {
	switch v.Encoding {
	case EncodingHex:
		s := v.Value
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			s = "0x" + s
		}
		return hexutil.Decode(s)
	case EncodingUTF8:
		return []byte(v.Value), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", v.Encoding)
	}
}

// Digest decodes the value as a 32 byte digest
func (v EncodedValue) Digest() (types.Digest, error) {
	b, err := v.Bytes()
	if err != nil {
		return types.Digest{}, err
	}
	if len(b) != types.DigestLength {
		return types.Digest{}, fmt.Errorf("%w: digest of %d bytes", types.ErrMismatchedLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// ProofTest is a binary tree inclusion proof together with the expected
// verification outcome
type ProofTest struct {
	Name                 string         `yaml:"name"`
	Root                 EncodedValue   `yaml:"root"`
	Data                 EncodedValue   `yaml:"data"`
	ProofSet             []EncodedValue `yaml:"proof_set"`
	ProofIndex           uint64         `yaml:"proof_index"`
	NumLeaves            uint64         `yaml:"num_leaves"`
	ExpectedVerification bool           `yaml:"expected_verification"`
}

// Decode returns the root, data and proof of the test
func (p *ProofTest) Decode() (types.Digest, []byte, types.Proof, error) {
	root, err := p.Root.Digest()
	if err != nil {
		return types.Digest{}, nil, nil, fmt.Errorf("root: %w", err)
	}
	data, err := p.Data.Bytes()
	if err != nil {
		return types.Digest{}, nil, nil, fmt.Errorf("data: %w", err)
	}
	proof := make(types.Proof, 0, len(p.ProofSet))
	for i, v := range p.ProofSet {
		d, err := v.Digest()
		if err != nil {
			return types.Digest{}, nil, nil, fmt.Errorf("proof_set[%d]: %w", i, err)
		}
		proof = append(proof, d)
	}
	return root, data, proof, nil
}

// LoadProofTests reads every *.yaml fixture in dir, sorted by file name
func LoadProofTests(dir string) ([]ProofTest, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	tests := make([]ProofTest, 0, len(files))
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var test ProofTest
		if err := yaml.Unmarshal(raw, &test); err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", file, err)
		}
		if test.Name == "" {
			test.Name = strings.TrimSuffix(filepath.Base(file), ".yaml")
		}
		tests = append(tests, test)
	}
	return tests, nil
}
