package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"voting-ledger/encryption"
	"voting-ledger/ledger"
	"voting-ledger/mirror"
	"voting-ledger/models"
	"voting-ledger/testutil"
)

const testingDirName = "testing"

func TestMain(m *testing.M) {
	testutil.SetupTestLogger(testingDirName)
	rc := m.Run()
	testutil.TeardownTestLogger(testingDirName)
	os.Exit(rc)
}

func sampleChain(voters ...string) []*models.ChainBlock {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	previous := models.GenesisHash
	blocks := make([]*models.ChainBlock, 0, len(voters))
	for i, voter := range voters {
		block := models.NewChainBlock(models.VoteEvent{
			CandidateName: "Alice",
			VoterID:       voter,
		}, previous, base.Add(time.Duration(i)*time.Millisecond))
		blocks = append(blocks, block)
		previous = block.CurrentHash
	}
	return blocks
}

// runApp runs the command line and returns its output and exit status
func runApp(t *testing.T, args ...string) (string, int, error) {
	t.Helper()

	code := 0
	oldExiter := cli.OsExiter
	cli.OsExiter = func(c int) { code = c }
	t.Cleanup(func() { cli.OsExiter = oldExiter })

	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut)
	err := app.Run(append([]string{"chainverify"}, args...))
	return out.String(), code, err
}

func decodeVerification(t *testing.T, out string) verification {
	t.Helper()
	var v verification
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	return v
}

func TestDecodeChain(t *testing.T) {
	blocks := sampleChain("V1", "V2")

	bare, err := json.Marshal(blocks)
	require.NoError(t, err)
	decoded, err := decodeChain(bare)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
	assert.True(t, models.ValidateChain(decoded))

	wrapped, err := json.Marshal(ledger.ChainReport{TotalBlocks: 2, Chain: blocks, IsChainValid: true})
	require.NoError(t, err)
	decoded, err = decodeChain(wrapped)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)
	assert.Equal(t, blocks[1].CurrentHash, decoded[1].CurrentHash)

	_, err = decodeChain([]byte("  "))
	assert.Error(t, err)
	_, err = decodeChain([]byte("{not json"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	blocks := sampleChain("V1", "V2", "V3")

	v := verify(blocks)
	assert.True(t, v.IsChainValid)
	assert.Equal(t, 3, v.TotalBlocks)
	assert.Equal(t, blocks[2].CurrentHash, v.LastHash)

	blocks[1].CandidateName = "Mallory"
	v = verify(blocks)
	assert.False(t, v.IsChainValid)
	require.NotEmpty(t, v.Faults)
	assert.Equal(t, 1, v.Faults[0].BlockIndex)

	empty := verify(nil)
	assert.True(t, empty.IsChainValid)
	assert.Zero(t, empty.TotalBlocks)
}

func TestURLCommand(t *testing.T) {
	blocks := sampleChain("V1", "V2")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chainPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ledger.ChainReport{TotalBlocks: len(blocks), Chain: blocks, IsChainValid: true})
	}))
	defer srv.Close()

	out, code, err := runApp(t, "url", srv.URL+"/")
	require.NoError(t, err)
	assert.Zero(t, code)

	v := decodeVerification(t, out)
	assert.True(t, v.IsChainValid)
	assert.Equal(t, 2, v.TotalBlocks)
	assert.Empty(t, v.Chain, "blocks are only printed in verbose mode")
}

func TestURLCommandServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Mirror store unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	blocks, err := fetchChain(context.Background(), srv.Client(), srv.URL)
	assert.Nil(t, blocks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFileCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	data, err := json.Marshal(sampleChain("V1", "V2", "V3"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, code, err := runApp(t, "-v", "file", path)
	require.NoError(t, err)
	assert.Zero(t, code)

	v := decodeVerification(t, out)
	assert.True(t, v.IsChainValid)
	assert.Len(t, v.Chain, 3)
}

func TestFileCommandTampered(t *testing.T) {
	blocks := sampleChain("V1", "V2", "V3")
	blocks[2].VoterID = "V9"

	path := filepath.Join(t.TempDir(), "chain.json")
	data, err := json.Marshal(blocks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, code, err := runApp(t, "file", path)
	assert.Error(t, err)
	assert.Equal(t, exitInvalid, code)

	v := decodeVerification(t, out)
	assert.False(t, v.IsChainValid)
	require.NotEmpty(t, v.Faults)
	assert.Equal(t, 2, v.Faults[0].BlockIndex)
}

func TestFileCommandNullBlock(t *testing.T) {
	for name, document := range map[string]string{
		"bare":     `[null]`,
		"report":   `{"totalBlocks":1,"chain":[null],"isChainValid":true}`,
		"trailing": `[` + mustJSON(t, sampleChain("V1")[0]) + `,null]`,
	} {
		path := filepath.Join(t.TempDir(), "chain.json")
		require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

		_, _, err := runApp(t, "file", path)
		assert.ErrorIs(t, err, errMalformedChain, name)
	}
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestFileCommandMissingArgument(t *testing.T) {
	_, _, err := runApp(t, "file")
	assert.ErrorIs(t, err, errMissingArgument)
}

func TestLevelDBCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")

	store, err := mirror.OpenLevelDB(dir)
	require.NoError(t, err)
	for _, block := range sampleChain("V1", "V2") {
		require.NoError(t, store.AppendBlock(context.Background(), block))
	}
	require.NoError(t, store.Close())

	out, code, err := runApp(t, "leveldb", dir)
	require.NoError(t, err)
	assert.Zero(t, code)

	v := decodeVerification(t, out)
	assert.True(t, v.IsChainValid)
	assert.Equal(t, 2, v.TotalBlocks)
}

func TestLevelDBCommandOrphanVote(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	ctx := context.Background()

	store, err := mirror.OpenLevelDB(dir)
	require.NoError(t, err)
	blocks := sampleChain("V1", "V2")
	for _, block := range blocks {
		require.NoError(t, store.AppendBlock(ctx, block))
	}
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendVote(ctx, &models.MirrorVote{CandidateName: "Alice", VoterID: "V1", Timestamp: at, BlockHash: blocks[0].CurrentHash, Verified: true}))
	require.NoError(t, store.AppendVote(ctx, &models.MirrorVote{CandidateName: "Bob", VoterID: "V9", Timestamp: at.Add(time.Second), BlockHash: "forged", Verified: true}))
	require.NoError(t, store.Close())

	out, code, err := runApp(t, "leveldb", dir)
	assert.Error(t, err)
	assert.Equal(t, exitInvalid, code)

	v := decodeVerification(t, out)
	assert.False(t, v.IsChainValid)
	assert.Equal(t, 2, v.MirrorVotes)
	require.Len(t, v.Faults, 1)
	assert.Equal(t, orphanVote, v.Faults[0].Error)
	assert.Equal(t, "V9", v.Faults[0].VoterID)
}

func writeCastResponse(t *testing.T, blockHash string, receipt *encryption.Receipt) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cast.json")
	data := mustJSON(t, map[string]interface{}{
		"success":   true,
		"message":   "Vote cast successfully",
		"blockHash": blockHash,
		"receipt":   receipt,
	})
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestReceiptCommand(t *testing.T) {
	key, err := encryption.NewCryptoService().GenerateKeyPair()
	require.NoError(t, err)
	signer := encryption.NewReceiptSigner(key)

	hash := sampleChain("V1")[0].CurrentHash
	receipt, err := signer.IssueReceipt(hash)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		out, code, err := runApp(t, "receipt", "-k", signer.KeyID(), writeCastResponse(t, hash, receipt))
		require.NoError(t, err)
		assert.Zero(t, code)
		assert.Contains(t, out, `"valid": true`)
	})

	t.Run("other block", func(t *testing.T) {
		_, code, err := runApp(t, "receipt", writeCastResponse(t, models.GenesisHash, receipt))
		assert.Error(t, err)
		assert.Equal(t, exitInvalid, code)
	})

	t.Run("other key", func(t *testing.T) {
		_, code, err := runApp(t, "receipt", "-k", "0x0000000000000000000000000000000000000001", writeCastResponse(t, hash, receipt))
		assert.Error(t, err)
		assert.Equal(t, exitInvalid, code)
	})

	t.Run("no receipt", func(t *testing.T) {
		_, _, err := runApp(t, "receipt", writeCastResponse(t, hash, nil))
		assert.ErrorIs(t, err, errMalformedReceipt)
	})
}
