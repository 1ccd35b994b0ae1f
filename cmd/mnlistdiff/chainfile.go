package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

type chainBlock struct {
	height     uint32
	merkleRoot *chainhash.Hash
}

// chain is the part of the block chain the applied diffs refer to. It
// stands in for a header chain, answering the height and merkle root of
// every block it lists.
type chain struct {
	blocks map[chainhash.Hash]chainBlock
}

var _ model.BlockHeightLookup = (*chain)(nil)
var _ model.MerkleRootLookup = (*chain)(nil)

func loadChainFile(path string) (*chain, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening chain file %s", path)
	}
	defer file.Close()

	c, err := parseChain(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing chain file %s", path)
	}
	return c, nil
}

// parseChain reads lines of the form '<block hash> <height> [<merkle root>]'.
// Blank lines and lines starting with '#' are skipped.
func parseChain(reader io.Reader) (*chain, error) {
	c := &chain{blocks: make(map[chainhash.Hash]chainBlock)}
	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, errors.Errorf("line %d: expected '<block hash> <height> [<merkle root>]'", lineNumber)
		}
		blockHash, err := chainhash.NewHashFromStr(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid block hash", lineNumber)
		}
		height, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid height", lineNumber)
		}
		block := chainBlock{height: uint32(height)}
		if len(fields) == 3 {
			block.merkleRoot, err = chainhash.NewHashFromStr(fields[2])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid merkle root", lineNumber)
			}
		}
		if _, ok := c.blocks[*blockHash]; ok {
			return nil, errors.Errorf("line %d: block %s is listed twice", lineNumber, blockHash)
		}
		c.blocks[*blockHash] = block
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return c, nil
}

// BlockHeight returns the height of the given block.
func (c *chain) BlockHeight(blockHash *chainhash.Hash) (uint32, bool) {
	block, ok := c.blocks[*blockHash]
	return block.height, ok
}

// MerkleRoot returns the merkle root of the header of the given block, when
// the chain file lists one.
func (c *chain) MerkleRoot(blockHash *chainhash.Hash) (*chainhash.Hash, bool) {
	block, ok := c.blocks[*blockHash]
	if !ok || block.merkleRoot == nil {
		return nil, false
	}
	return block.merkleRoot, true
}
