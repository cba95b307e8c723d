package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

func openLeaves(path string) (*os.File, error) {
	return os.Open(filepath.Clean(path))
}

// readLeaves parses one hex encoded leaf per line, blank lines and lines
// starting with # are skipped
func readLeaves(r io.Reader) ([][]byte, error) {
	var leaves [][]byte
	err := forEachLine(r, func(n int, line string) error {
		leaf, err := decodeHex(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		leaves = append(leaves, leaf)
		return nil
	})
	return leaves, err
}

// readSumLeaves parses one value,data pair per line. The value is decimal or
// 0x prefixed hex.
func readSumLeaves(r io.Reader) ([]*uint256.Int, [][]byte, error) {
	var (
		values []*uint256.Int
		leaves [][]byte
	)
	err := forEachLine(r, func(n int, line string) error {
		value, data, ok := strings.Cut(line, ",")
		if !ok {
			return fmt.Errorf("line %d: expected value,data", n)
		}
		v, err := uint256.FromDecimal(strings.TrimSpace(value))
		if err != nil {
			v, err = uint256.FromHex(strings.TrimSpace(value))
		}
		if err != nil {
			return fmt.Errorf("line %d: invalid value %q: %w", n, value, err)
		}
		leaf, err := decodeHex(strings.TrimSpace(data))
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		values = append(values, v)
		leaves = append(leaves, leaf)
		return nil
	})
	return values, leaves, err
}

func forEachLine(r io.Reader, f func(n int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := f(n, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
