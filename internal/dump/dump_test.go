package dump_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInscriptionText(t *testing.T) {
	type Spec struct {
		Text        string
		ExpectedRaw string
	}
	specs := []Spec{
		{Text: `{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`, ExpectedRaw: `{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`},
		{Text: "hello world", ExpectedRaw: `"hello world"`},
		{Text: `say "hi"`, ExpectedRaw: `"say \"hi\""`},
		{Text: "42", ExpectedRaw: "42"},
	}
	for _, spec := range specs {
		t.Run(spec.Text, func(t *testing.T) {
			var d dump.Dump
			d.SetInscriptionText(spec.Text)
			assert.Equal(t, spec.ExpectedRaw, string(d.Inscription))
			assert.Equal(t, spec.Text, d.InscriptionText())
		})
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store := dump.NewStore(filepath.Join(dir, "data", "dump.json"), filepath.Join(dir, "data", "archive"))
	createdAt := time.Date(2024, 4, 20, 1, 2, 3, 0, time.Local)
	store.SetClock(func() time.Time { return createdAt })

	d := &dump.Dump{
		CommitTxID:    "c0",
		CommitTxHex:   "0200",
		RevealTxIDs:   []string{"r0", "r1"},
		RevealTxHexes: []string{"0201", "0202"},
		FeeRate:       12,
		SpendSats:     5000,
		Payment:       "bc1payment",
		Destination:   "bc1destination",
		Count:         2,
		Network:       common.NetworkBitcoinMainnet,
	}
	d.SetInscriptionText(`{"p":"brc-20"}`)

	archivePath, err := store.Write(d)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "archive", "2024-04-20 01:02:03.json"), archivePath)

	current, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	archived, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, current, archived)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(current, &raw))
	assert.Equal(t, map[string]any{"p": "brc-20"}, raw["inscription"])
	assert.Equal(t, "0200", raw["commitTxHex"])
	assert.NotContains(t, raw, "mintTxHexes")

	loaded, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, d.RevealTxHexes, loaded.RevealTxHexes)
	assert.Equal(t, d.CommitTxID, loaded.CommitTxID)
	assert.False(t, loaded.IsMintChain())
	assert.True(t, createdAt.Equal(loaded.CreatedAt))

	t.Run("second_write_same_second", func(t *testing.T) {
		next := *d
		next.CommitTxID = "c1"
		archivePath, err := store.Write(&next)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "data", "archive", "2024-04-20 01:02:03 (1).json"), archivePath)

		loaded, err := store.Read()
		require.NoError(t, err)
		assert.Equal(t, "c1", loaded.CommitTxID)
	})

	t.Run("no_leftover_temp_files", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "data"))
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		assert.ElementsMatch(t, []string{"archive", "dump.json"}, names)
	})
}

func TestStoreRead(t *testing.T) {
	type Spec struct {
		Name          string
		Content       string
		ExpectedError error
	}
	specs := []Spec{
		{Name: "missing", ExpectedError: errs.NotFound},
		{Name: "corrupted", Content: "{", ExpectedError: errs.InvalidArgument},
		{Name: "no_commit", Content: `{"revealTxHexes":["00"]}`, ExpectedError: errs.InvalidArgument},
		{Name: "mixed_children", Content: `{"commitTxHex":"00","revealTxHexes":["01"],"mintTxHexes":["02"]}`, ExpectedError: errs.InvalidArgument},
	}
	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dump.json")
			if spec.Content != "" {
				require.NoError(t, os.WriteFile(path, []byte(spec.Content), 0o600))
			}
			_, err := dump.NewStore(path, t.TempDir()).Read()
			assert.ErrorIs(t, err, spec.ExpectedError)
		})
	}

	t.Run("mint_chain", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"commitTxHex":"00","mintTxHexes":["01","02"],"rune":"840000:3","mintWallet":{"address":"bc1p","privateKey":"K"}}`), 0o600))
		d, err := dump.NewStore(path, t.TempDir()).Read()
		require.NoError(t, err)
		assert.True(t, d.IsMintChain())
		assert.Equal(t, "K", d.MintWallet.PrivateKey)
	})
}
