package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli"

	"voting-ledger/encryption"
	"voting-ledger/ledger"
	"voting-ledger/mirror"
	"voting-ledger/models"
)

const chainPath = "/votes/chain"

var (
	errMissingArgument  = errors.New("missing argument")
	errMalformedChain   = errors.New("malformed chain document")
	errMalformedReceipt = errors.New("malformed receipt document")
)

// fault kind for a mirrored vote copy whose block is not in the chain
const orphanVote = "vote without block"

// exit status for a chain that loaded but failed verification
const exitInvalid = 3

func runURL(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	base := c.Args().First()
	if base == "" {
		return errMissingArgument
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	blocks, err := fetchChain(ctx, http.DefaultClient, base)
	if err != nil {
		return err
	}
	return report(m, blocks)
}

func runFile(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	path := c.Args().First()
	if path == "" {
		return errMissingArgument
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	blocks, err := decodeChain(data)
	if err != nil {
		return err
	}
	return report(m, blocks)
}

func runLevelDB(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	dir := c.Args().First()
	if dir == "" {
		return errMissingArgument
	}

	store, err := mirror.OpenLevelDB(dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	blocks, err := store.Chain(ctx)
	if err != nil {
		return err
	}
	votes, err := store.Votes(ctx)
	if err != nil {
		return err
	}

	v := verify(blocks)
	checkVotes(v, blocks, votes)
	return printReport(m, v, blocks)
}

// castReceipt is the part of a cast vote response a receipt is checked against
type castReceipt struct {
	BlockHash string              `json:"blockHash"`
	Receipt   *encryption.Receipt `json:"receipt"`
}

type receiptVerification struct {
	BlockHash string `json:"blockHash"`
	Kid       string `json:"kid,omitempty"`
	Valid     bool   `json:"valid"`
}

func runReceipt(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	path := c.Args().First()
	if path == "" {
		return errMissingArgument
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cast castReceipt
	if err := json.Unmarshal(data, &cast); err != nil {
		return err
	}
	if cast.BlockHash == "" || cast.Receipt == nil {
		return fmt.Errorf("%w: no block hash or receipt", errMalformedReceipt)
	}

	v := verifyReceipt(cast, c.String("kid"))
	printJson(m.w, v)
	if !v.Valid {
		return cli.NewExitError("receipt is invalid", exitInvalid)
	}
	return nil
}

// verifyReceipt checks the signature and, when kid is set, the signing key
func verifyReceipt(cast castReceipt, kid string) *receiptVerification {
	v := &receiptVerification{
		BlockHash: cast.BlockHash,
		Kid:       cast.Receipt.Kid,
		Valid:     encryption.VerifyReceipt(cast.BlockHash, cast.Receipt),
	}
	if kid != "" && !strings.EqualFold(kid, cast.Receipt.Kid) {
		v.Valid = false
	}
	return v
}

func fetchChain(ctx context.Context, client *http.Client, base string) ([]*models.ChainBlock, error) {
	url := strings.TrimRight(base, "/") + chainPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s: %s", url, resp.Status, strings.TrimSpace(string(data)))
	}
	return decodeChain(data)
}

// decodeChain accepts either the chain report served by the API or a bare
// array of blocks.
func decodeChain(data []byte) ([]*models.ChainBlock, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty chain document")
	}

	var blocks []*models.ChainBlock
	if data[0] == '[' {
		if err := json.Unmarshal(data, &blocks); err != nil {
			return nil, err
		}
	} else {
		var r ledger.ChainReport
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		blocks = r.Chain
	}

	for i, block := range blocks {
		if block == nil {
			return nil, fmt.Errorf("%w: block %d is null", errMalformedChain, i)
		}
	}
	return blocks, nil
}

type verification struct {
	TotalBlocks  int                  `json:"totalBlocks"`
	MirrorVotes  int                  `json:"mirrorVotes,omitempty"`
	IsChainValid bool                 `json:"isChainValid"`
	LastHash     string               `json:"lastHash,omitempty"`
	Faults       []models.ChainFault  `json:"faults,omitempty"`
	Chain        []*models.ChainBlock `json:"chain,omitempty"`
}

func verify(blocks []*models.ChainBlock) *verification {
	v := &verification{
		TotalBlocks: len(blocks),
		Faults:      models.InspectChain(blocks),
	}
	v.IsChainValid = len(v.Faults) == 0
	if len(blocks) > 0 {
		v.LastHash = blocks[len(blocks)-1].CurrentHash
	}
	return v
}

// checkVotes matches the mirrored vote copies against the chain. Every copy
// is written after its block, so a copy without a block means the mirror was
// edited. Faults found here carry the position of the vote copy.
func checkVotes(v *verification, blocks []*models.ChainBlock, votes []*models.MirrorVote) {
	hashes := make(map[string]struct{}, len(blocks))
	for _, block := range blocks {
		hashes[block.CurrentHash] = struct{}{}
	}

	v.MirrorVotes = len(votes)
	for i, vote := range votes {
		if _, ok := hashes[vote.BlockHash]; ok {
			continue
		}
		v.Faults = append(v.Faults, models.ChainFault{
			BlockIndex: i,
			Error:      orphanVote,
			Actual:     vote.BlockHash,
			VoterID:    vote.VoterID,
		})
		v.IsChainValid = false
	}
}

func report(m *metadata, blocks []*models.ChainBlock) error {
	return printReport(m, verify(blocks), blocks)
}

func printReport(m *metadata, v *verification, blocks []*models.ChainBlock) error {
	if m.verbose {
		v.Chain = blocks
	}
	printJson(m.w, v)

	if !v.IsChainValid {
		return cli.NewExitError(fmt.Sprintf("chain is invalid: %d faults", len(v.Faults)), exitInvalid)
	}
	return nil
}

func printJson(w io.Writer, message interface{}) {
	b, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "formatting error: %s\n", err)
		return
	}
	fmt.Fprintf(w, "%s\n", b)
}
