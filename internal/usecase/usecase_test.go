package usecase_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWIF          = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"
	testRuneID       = "840000:3"
	otherP2TRAddress = "bc1p7h87kqsmpzatddzhdhuy9gmxdpvn5kvar6hhqlgau8d2ffa0pa3qvz5d38"
)

type fakeUTXOs struct {
	utxos []*datasources.UTXO
	err   error
}

func (f *fakeUTXOs) GetAllAddressUTXOs(context.Context, string) ([]*datasources.UTXO, error) {
	return f.utxos, f.err
}

type fakeFees struct {
	fee datasources.RecommendedFee
}

func (f *fakeFees) GetRecommendedFee(context.Context) (*datasources.RecommendedFee, error) {
	return &f.fee, nil
}

type fakeNode struct {
	info datasources.BlockchainInfo
}

func (f *fakeNode) GetBlockchainInfo(context.Context) (*datasources.BlockchainInfo, error) {
	return &f.info, nil
}

type fakePrompter struct {
	answer bool
	asked  int
}

func (f *fakePrompter) Confirm(context.Context, string) (bool, error) {
	f.asked++
	return f.answer, nil
}

type pushCall struct {
	commitHex string
	children  []string
	// dump holds the transactions when the push started
	savedDump bool
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	store *dump.Store
	calls []pushCall
}

func (f *fakeBroadcaster) push(commitHex string, children []string) (*broadcast.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{commitHex: commitHex, children: children, savedDump: f.dumpHolds(commitHex, children)})
	commit, err := txbuilder.DecodeTransaction(commitHex)
	if err != nil {
		return nil, err
	}
	result := &broadcast.Result{CommitTxID: commit.ID}
	for _, child := range children {
		tx, err := txbuilder.DecodeTransaction(child)
		if err != nil {
			return nil, err
		}
		result.Submitted = append(result.Submitted, tx.ID)
	}
	return result, nil
}

func (f *fakeBroadcaster) dumpHolds(commitHex string, children []string) bool {
	if f.store == nil {
		return false
	}
	saved, err := f.store.Read()
	if err != nil {
		return false
	}
	savedChildren := append(append([]string{}, saved.RevealTxHexes...), saved.MintTxHexes...)
	return saved.CommitTxHex == commitHex && slices.Equal(savedChildren, children)
}

func (f *fakeBroadcaster) PushTransactions(_ context.Context, commitHex string, childHexes []string) (*broadcast.Result, error) {
	return f.push(commitHex, childHexes)
}

func (f *fakeBroadcaster) PushChain(_ context.Context, commitHex string, chainHexes []string) (*broadcast.Result, error) {
	return f.push(commitHex, chainHexes)
}

type fakeJournal struct {
	requested []string
}

func (f *fakeJournal) List(_ context.Context, txIDs ...string) ([]journal.Entry, error) {
	f.requested = txIDs
	entries := make([]journal.Entry, 0, len(txIDs))
	for _, txID := range txIDs {
		entries = append(entries, journal.Entry{TxID: txID, Status: journal.StatusSubmitted, Attempts: 1})
	}
	return entries, nil
}

type testEnv struct {
	usecase  *usecase.Usecase
	config   config.Config
	store    *dump.Store
	prompter *fakePrompter
	batch    *fakeBroadcaster
	chain    *fakeBroadcaster
	journal  *fakeJournal
	out      *bytes.Buffer
	wallet   *wallet.Wallet
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Network:   common.NetworkBitcoinMainnet,
		Unisat:    config.UnisatConfig{URL: "http://unisat.invalid", APIKey: "key"},
		Mempool:   config.MempoolConfig{URL: "http://mempool.invalid"},
		HTTP:      config.HTTPConfig{Timeout: time.Second},
		FeeRate:   2,
		Funding:   config.FundingConfig{WIF: testWIF},
		Text:      config.TextConfig{Content: "hello world", Repeat: 1},
		Rune:      config.RuneConfig{ID: testRuneID, Repeat: 1},
		Files:     config.FilesConfig{Dir: filepath.Join(dir, "files")},
		Data:      config.DataConfig{DumpPath: filepath.Join(dir, "dump.json"), ArchiveDir: filepath.Join(dir, "archive"), JournalPath: filepath.Join(dir, "journal.db")},
		Broadcast: broadcast.DefaultConfig(),
	}
}

func newTestEnv(t *testing.T, conf config.Config, fees *fakeFees) *testEnv {
	t.Helper()
	w, err := wallet.FromWIF(testWIF, btcutils.AddressP2TR, conf.Network.ChainParams())
	require.NoError(t, err)

	if fees == nil {
		fees = &fakeFees{}
	}
	env := &testEnv{
		config:   conf,
		store:    dump.NewStore(conf.Data.DumpPath, conf.Data.ArchiveDir),
		prompter: &fakePrompter{answer: true},
		journal:  &fakeJournal{},
		out:      &bytes.Buffer{},
		wallet:   w,
	}
	env.batch = &fakeBroadcaster{store: env.store}
	env.chain = &fakeBroadcaster{store: env.store}
	utxos := &fakeUTXOs{utxos: []*datasources.UTXO{
		{
			TxID:     chainhash.Hash{0xaa}.String(),
			Vout:     0,
			Satoshi:  200_000,
			ScriptPk: hex.EncodeToString(w.Address().ScriptPubKey()),
			Address:  w.Address().String(),
		},
	}}
	env.usecase = usecase.New(conf, usecase.Dependencies{
		UTXOs:    utxos,
		Fees:     fees,
		Node:     &fakeNode{info: datasources.BlockchainInfo{Chain: "main", Blocks: 10, Headers: 10}},
		Store:    env.store,
		Journal:  env.journal,
		Prompter: env.prompter,
		Batch:    env.batch,
		Chain:    env.chain,
		Out:      env.out,
	})
	return env
}

func TestInscribeText(t *testing.T) {
	conf := testConfig(t)
	conf.Text.Repeat = 3
	env := newTestEnv(t, conf, nil)

	outcome, err := env.usecase.InscribeText(context.Background())
	require.NoError(t, err)
	require.True(t, outcome.Confirmed)
	assert.Equal(t, 1, env.prompter.asked)

	plan := outcome.Plan
	require.Len(t, plan.Children, 3)
	commitHash := plan.Commit.MsgTx.TxHash()
	for i, reveal := range plan.Children {
		assert.Equal(t, wire.OutPoint{Hash: commitHash, Index: uint32(i)}, reveal.MsgTx.TxIn[0].PreviousOutPoint)
		assert.Equal(t, plan.Commit.MsgTx.TxOut[0].Value, plan.Commit.MsgTx.TxOut[i].Value, "every copy locks the same amount")
		assert.Equal(t, env.wallet.Address().ScriptPubKey(), reveal.MsgTx.TxOut[0].PkScript, "destination defaults to the funding address")
		assert.EqualValues(t, btcutils.PostageSegwit, reveal.MsgTx.TxOut[0].Value)
	}
	assert.Equal(t, plan.Commit.MsgTx.TxOut[0].Value*3, plan.ServiceFee)
	assert.Equal(t, plan.Commit.Fee, plan.NetworkFee)

	require.Len(t, env.batch.calls, 1)
	assert.Empty(t, env.chain.calls)
	assert.Equal(t, plan.Commit.Hex, env.batch.calls[0].commitHex)
	assert.Len(t, env.batch.calls[0].children, 3)
	assert.True(t, env.batch.calls[0].savedDump, "dump must be on disk before the first push")
	require.NotNil(t, outcome.Result)
	assert.Len(t, outcome.Result.Submitted, 3)

	saved, err := env.store.Read()
	require.NoError(t, err)
	assert.Equal(t, "hello world", saved.InscriptionText())
	assert.Equal(t, plan.Commit.ID, saved.CommitTxID)
	assert.Len(t, saved.RevealTxHexes, 3)
	assert.Equal(t, plan.Total(), saved.SpendSats)
	assert.Equal(t, 3, saved.Count)
	assert.EqualValues(t, 2, saved.FeeRate)
	assert.Equal(t, common.NetworkBitcoinMainnet, saved.Network)
	assert.FileExists(t, outcome.ArchivePath)

	assert.Contains(t, env.out.String(), "Inscribe fee")
	assert.Contains(t, env.out.String(), " BTC)")
}

func TestInscribeTextCancelled(t *testing.T) {
	env := newTestEnv(t, testConfig(t), nil)
	env.prompter.answer = false

	outcome, err := env.usecase.InscribeText(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Confirmed)
	assert.Empty(t, outcome.ArchivePath)
	assert.Empty(t, env.batch.calls)

	_, err = env.store.Read()
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRecommendedFeeRate(t *testing.T) {
	conf := testConfig(t)
	conf.FeeRate = 0
	env := newTestEnv(t, conf, &fakeFees{fee: datasources.RecommendedFee{FastestFee: 7, HalfHourFee: 5, HourFee: 3, EconomyFee: 2, MinimumFee: 1}})

	outcome, err := env.usecase.InscribeText(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, outcome.Plan.FeeRate)
}

func TestInscribeFiles(t *testing.T) {
	conf := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(conf.Files.Dir, "nested"), 0o755))
	files := map[string]string{
		"b.json":  `{"name":"b"}`,
		"a.txt":   "a",
		".hidden": "skip me",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(conf.Files.Dir, name), []byte(content), 0o600))
	}
	env := newTestEnv(t, conf, nil)

	outcome, err := env.usecase.InscribeFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.Plan.Children, 2)
	assert.Equal(t, 2, outcome.Plan.Count)

	saved, err := env.store.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.json"}, saved.Files)
	assert.Len(t, saved.RevealTxIDs, 2)
	assert.Empty(t, saved.Inscription)
}

func TestInscribeFilesEmptyDir(t *testing.T) {
	conf := testConfig(t)
	require.NoError(t, os.MkdirAll(conf.Files.Dir, 0o755))
	env := newTestEnv(t, conf, nil)

	_, err := env.usecase.InscribeFiles(context.Background())
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestMintRune(t *testing.T) {
	type Spec struct {
		Name          string
		Repeat        int
		ExpectedCount int
	}

	specs := []Spec{
		{Name: "single_mint", Repeat: 1, ExpectedCount: 1},
		{Name: "chain", Repeat: 4, ExpectedCount: 4},
		{Name: "capped", Repeat: 30, ExpectedCount: config.MaxRuneRepeat},
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			conf := testConfig(t)
			conf.Rune.Repeat = spec.Repeat
			env := newTestEnv(t, conf, nil)

			outcome, err := env.usecase.MintRune(context.Background())
			require.NoError(t, err)

			plan := outcome.Plan
			assert.Equal(t, spec.ExpectedCount, plan.Count)
			require.Len(t, plan.Children, spec.ExpectedCount-1)

			runestone, err := runes.Decipher(plan.Commit.MsgTx.TxOut[0].PkScript)
			require.NoError(t, err)
			assert.Equal(t, testRuneID, runestone.Mint.String())
			assert.EqualValues(t, txbuilder.MintOutputIndex, *runestone.Pointer)

			saved, err := env.store.Read()
			require.NoError(t, err)
			require.NotNil(t, saved.MintWallet)
			assert.Equal(t, testRuneID, saved.Rune)
			assert.Len(t, saved.MintTxHexes, spec.ExpectedCount-1)
			assert.Empty(t, saved.RevealTxHexes)

			calls := append(append([]pushCall{}, env.chain.calls...), env.batch.calls...)
			require.Len(t, calls, 1)
			assert.True(t, calls[0].savedDump, "dump must be on disk before the first push")
			if spec.ExpectedCount > 1 {
				assert.Len(t, env.chain.calls, 1)
			}

			mintOutput := plan.Commit.MsgTx.TxOut[txbuilder.MintOutputIndex]
			assert.Equal(t, plan.ServiceFee, mintOutput.Value)
			if spec.ExpectedCount == 1 {
				assert.Equal(t, env.wallet.Address().ScriptPubKey(), mintOutput.PkScript)
				assert.EqualValues(t, btcutils.PostageSegwit, mintOutput.Value)
				return
			}

			mintAddress, err := btcutils.SafeNewAddress(saved.MintWallet.Address, conf.Network.ChainParams())
			require.NoError(t, err)
			assert.Equal(t, mintAddress.ScriptPubKey(), mintOutput.PkScript)

			last := plan.Children[len(plan.Children)-1].MsgTx
			assert.Equal(t, env.wallet.Address().ScriptPubKey(), last.TxOut[txbuilder.MintOutputIndex].PkScript)
			assert.EqualValues(t, btcutils.PostageSegwit, last.TxOut[txbuilder.MintOutputIndex].Value)

		})
	}
}

func TestFundingConfigErrors(t *testing.T) {
	type Spec struct {
		Name   string
		Modify func(c *config.Config)
	}

	specs := []Spec{
		{Name: "address_mismatch", Modify: func(c *config.Config) { c.Funding.Address = otherP2TRAddress }},
		{Name: "invalid_address", Modify: func(c *config.Config) { c.Funding.Address = "not-an-address" }},
		{Name: "testnet_destination", Modify: func(c *config.Config) { c.Destination = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx" }},
		{Name: "invalid_wif", Modify: func(c *config.Config) { c.Funding.WIF = "invalid" }},
		{Name: "missing_api_key", Modify: func(c *config.Config) { c.Unisat.APIKey = "" }},
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			conf := testConfig(t)
			spec.Modify(&conf)
			env := newTestEnv(t, testConfig(t), nil)
			env.usecase = usecase.New(conf, usecase.Dependencies{
				UTXOs:    &fakeUTXOs{},
				Fees:     &fakeFees{},
				Store:    env.store,
				Prompter: env.prompter,
				Batch:    env.batch,
				Chain:    env.chain,
			})

			_, err := env.usecase.InscribeText(context.Background())
			assert.ErrorIs(t, err, errs.InvalidConfig)
			assert.Zero(t, env.prompter.asked)
		})
	}
}

func TestInsufficientFunds(t *testing.T) {
	conf := testConfig(t)
	conf.Text.Repeat = 1000
	env := newTestEnv(t, conf, nil)

	_, err := env.usecase.InscribeText(context.Background())
	assert.ErrorIs(t, err, txbuilder.ErrInsufficientFunds)
	assert.Zero(t, env.prompter.asked)
}

func TestBroadcast(t *testing.T) {
	conf := testConfig(t)
	conf.Rune.Repeat = 3
	env := newTestEnv(t, conf, nil)
	env.prompter.answer = false

	// build a mint dump and a reveal dump without pushing them
	mint, err := env.usecase.MintRune(context.Background())
	require.NoError(t, err)
	text, err := env.usecase.InscribeText(context.Background())
	require.NoError(t, err)

	t.Run("reveals", func(t *testing.T) {
		_, err := env.store.Write(text.Plan.Dump)
		require.NoError(t, err)

		result, err := env.usecase.Broadcast(context.Background())
		require.NoError(t, err)
		assert.Equal(t, text.Plan.Commit.ID, result.CommitTxID)
		require.NotEmpty(t, env.batch.calls)
		assert.Equal(t, text.Plan.Dump.RevealTxHexes, env.batch.calls[len(env.batch.calls)-1].children)
	})

	t.Run("mint_chain", func(t *testing.T) {
		_, err := env.store.Write(mint.Plan.Dump)
		require.NoError(t, err)

		result, err := env.usecase.Broadcast(context.Background())
		require.NoError(t, err)
		assert.Len(t, result.Submitted, 2)
		require.NotEmpty(t, env.chain.calls)
		assert.Equal(t, mint.Plan.Dump.MintTxHexes, env.chain.calls[len(env.chain.calls)-1].children)
	})

	t.Run("status", func(t *testing.T) {
		entries, err := env.usecase.BroadcastStatus(context.Background())
		require.NoError(t, err)
		expected := append([]string{mint.Plan.Commit.ID}, mint.Plan.Dump.MintTxIDs...)
		assert.Equal(t, expected, env.journal.requested)
		assert.Len(t, entries, 3)
	})

	t.Run("status_without_ids", func(t *testing.T) {
		d := *mint.Plan.Dump
		d.CommitTxID, d.MintTxIDs = "", nil
		_, err := env.store.Write(&d)
		require.NoError(t, err)

		_, err = env.usecase.BroadcastStatus(context.Background())
		require.NoError(t, err)
		expected := append([]string{mint.Plan.Commit.ID}, mint.Plan.Dump.MintTxIDs...)
		assert.Equal(t, expected, env.journal.requested)
	})

	t.Run("network_mismatch", func(t *testing.T) {
		d := *text.Plan.Dump
		d.Network = common.NetworkBitcoinTestnet
		_, err := env.store.Write(&d)
		require.NoError(t, err)

		_, err = env.usecase.Broadcast(context.Background())
		assert.ErrorIs(t, err, errs.InvalidConfig)
	})
}

func TestBroadcastMissingDump(t *testing.T) {
	env := newTestEnv(t, testConfig(t), nil)

	_, err := env.usecase.Broadcast(context.Background())
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestNodeInfo(t *testing.T) {
	env := newTestEnv(t, testConfig(t), nil)
	info, err := env.usecase.NodeInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Synced())

	withoutNode := usecase.New(testConfig(t), usecase.Dependencies{})
	_, err = withoutNode.NodeInfo(context.Background())
	assert.True(t, errors.Is(err, errs.InvalidConfig))
}
