package txbuilder_test

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/ordinals"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWIF = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"

var testNet = &chaincfg.MainNetParams

func newWallet(t *testing.T, addrType btcutils.AddressType) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromWIF(testWIF, addrType, testNet)
	require.NoError(t, err)
	return w
}

func newUTXO(w *wallet.Wallet, seed byte, value int64) *datasources.UTXO {
	return &datasources.UTXO{
		TxID:     chainhash.Hash{seed}.String(),
		Vout:     uint32(seed),
		Satoshi:  value,
		ScriptPk: hex.EncodeToString(w.Address().ScriptPubKey()),
		Address:  w.Address().String(),
	}
}

// verifyInput executes the script of input idx against prevOuts.
func verifyInput(t *testing.T, tx *wire.MsgTx, idx int, prevOuts map[wire.OutPoint]*wire.TxOut) {
	t.Helper()
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	prevOut := prevOuts[tx.TxIn[idx].PreviousOutPoint]
	require.NotNil(t, prevOut)
	engine, err := txscript.NewEngine(prevOut.PkScript, tx, idx, txscript.StandardVerifyFlags, nil, txscript.NewTxSigHashes(tx, fetcher), prevOut.Value, fetcher)
	require.NoError(t, err)
	require.NoError(t, engine.Execute())
}

func TestEstimateRevealSize(t *testing.T) {
	type Spec struct {
		Name        string
		Inscription ordinals.Inscription
		Destination string
	}

	specs := []Spec{
		{
			Name:        "text_to_p2tr",
			Inscription: ordinals.NewTextInscription("hello world"),
			Destination: "bc1p7h87kqsmpzatddzhdhuy9gmxdpvn5kvar6hhqlgau8d2ffa0pa3qvz5d38",
		},
		{
			Name:        "json_to_p2wpkh",
			Inscription: ordinals.NewTextInscription(`{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`),
			Destination: "bc1qfpgdxtpl7kz5qdus2pmexyjaza99c28q8uyczh",
		},
		{
			Name:        "large_file_to_p2sh",
			Inscription: ordinals.Inscription{ContentType: "image/png", Content: []byte(strings.Repeat("x", 4000))},
			Destination: "3Ccte7SJz71tcssLPZy3TdWz5DTPeNRbPw",
		},
	}

	w := newWallet(t, btcutils.AddressP2TR)
	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			destination := btcutils.NewAddress(spec.Destination, testNet)
			tapScript, err := ordinals.NewTapScript(w.PubKey(), spec.Inscription, testNet)
			require.NoError(t, err)

			vsize, err := txbuilder.EstimateRevealSize(w, tapScript, destination)
			require.NoError(t, err)

			revealFee := btcutils.FeeForVSize(vsize, 7)
			commitID := chainhash.Hash{0xaa, 0xbb}
			reveal, err := txbuilder.CreateRevealTx(txbuilder.RevealParams{
				Wallet:      w,
				CommitTxID:  commitID,
				Index:       3,
				InputValue:  revealFee + destination.Postage(),
				Destination: destination,
				Postage:     destination.Postage(),
				TapScript:   tapScript,
			})
			require.NoError(t, err)

			assert.Equal(t, vsize, reveal.VirtualSize)
			assert.Equal(t, revealFee, reveal.Fee)
			require.Len(t, reveal.MsgTx.TxIn, 1)
			assert.Equal(t, *wire.NewOutPoint(&commitID, 3), reveal.MsgTx.TxIn[0].PreviousOutPoint)
			assert.Equal(t, wire.TxWitness{reveal.MsgTx.TxIn[0].Witness[0], tapScript.Script, tapScript.ControlBlock}, reveal.MsgTx.TxIn[0].Witness)
			assert.Len(t, reveal.MsgTx.TxIn[0].Witness[0], 64)

			envelopes := ordinals.ParseEnvelopesFromTx(reveal.MsgTx)
			require.Len(t, envelopes, 1)
			assert.Equal(t, spec.Inscription, envelopes[0].Inscription)

			verifyInput(t, reveal.MsgTx, 0, map[wire.OutPoint]*wire.TxOut{
				reveal.MsgTx.TxIn[0].PreviousOutPoint: wire.NewTxOut(revealFee+destination.Postage(), tapScript.PkScript()),
			})
		})
	}
}

func TestCreateRevealTxInsufficientValue(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2TR)
	tapScript, err := ordinals.NewTapScript(w.PubKey(), ordinals.NewTextInscription("hi"), testNet)
	require.NoError(t, err)

	_, err = txbuilder.CreateRevealTx(txbuilder.RevealParams{
		Wallet:      w,
		InputValue:  300,
		Destination: w.Address(),
		Postage:     330,
		TapScript:   tapScript,
	})
	assert.ErrorIs(t, err, txbuilder.ErrInsufficientValue)
}

func TestCreateRevealTxs(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2TR)
	items := make([]txbuilder.RevealItem, 0)
	for i := 0; i < 3; i++ {
		tapScript, err := ordinals.NewTapScript(w.PubKey(), ordinals.NewTextInscription(fmt.Sprintf("item %d", i)), testNet)
		require.NoError(t, err)
		items = append(items, txbuilder.RevealItem{TapScript: tapScript, InputValue: 1000})
	}

	commitID := chainhash.Hash{0x42}
	reveals, err := txbuilder.CreateRevealTxs(txbuilder.RevealBatchParams{
		Wallet:      w,
		CommitTxID:  commitID,
		Destination: w.Address(),
		Postage:     330,
		Items:       items,
	})
	require.NoError(t, err)
	require.Len(t, reveals, 3)
	for i, reveal := range reveals {
		assert.Equal(t, *wire.NewOutPoint(&commitID, uint32(i)), reveal.MsgTx.TxIn[0].PreviousOutPoint)
		assert.Equal(t, int64(670), reveal.Fee)
	}
}

func TestDecodeTransaction(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2WPKH)
	commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{
		Wallet:  w,
		UTXOs:   []*datasources.UTXO{newUTXO(w, 1, 100_000)},
		Outputs: []txbuilder.Output{{Address: w.Address(), Value: 10_000}},
		FeeRate: 3,
	})
	require.NoError(t, err)

	decoded, err := txbuilder.DecodeTransaction(commit.Hex)
	require.NoError(t, err)
	assert.Equal(t, commit.ID, decoded.ID)
	assert.Equal(t, commit.VirtualSize, decoded.VirtualSize)
	assert.Equal(t, commit.Hex, decoded.Hex)

	_, err = txbuilder.DecodeTransaction("zz")
	assert.ErrorIs(t, err, errs.InvalidArgument)
	_, err = txbuilder.DecodeTransaction("0200")
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestCreateCommitTx(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2TR)
	destination := btcutils.NewAddress("bc1p7h87kqsmpzatddzhdhuy9gmxdpvn5kvar6hhqlgau8d2ffa0pa3qvz5d38", testNet)
	outputs := []txbuilder.Output{
		{Address: destination, Value: 1000},
		{Address: destination, Value: 2000},
	}
	utxos := []*datasources.UTXO{newUTXO(w, 1, 2000), newUTXO(w, 2, 3000)}

	type Spec struct {
		Name           string
		FeeRate        int64
		ExpectedChange bool
	}

	specs := []Spec{
		{Name: "change_above_dust", FeeRate: 5, ExpectedChange: true},
		{Name: "remainder_folded_into_fee", FeeRate: 8, ExpectedChange: false},
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{
				Wallet:    w,
				UTXOs:     utxos,
				Outputs:   outputs,
				FeeRate:   spec.FeeRate,
				EnableRBF: true,
			})
			require.NoError(t, err)

			tx := commit.MsgTx
			require.Len(t, tx.TxIn, 2)
			// largest first
			assert.Equal(t, uint32(2), tx.TxIn[0].PreviousOutPoint.Index)
			for _, txIn := range tx.TxIn {
				assert.Equal(t, btcutils.RBFSequenceNum, txIn.Sequence)
			}
			assert.Equal(t, int64(1000), tx.TxOut[0].Value)
			assert.Equal(t, int64(2000), tx.TxOut[1].Value)

			outputsTotal := lo.SumBy(tx.TxOut, func(out *wire.TxOut) int64 { return out.Value })
			assert.Equal(t, int64(5000), outputsTotal+commit.Fee)

			if spec.ExpectedChange {
				require.Len(t, tx.TxOut, 3)
				assert.Equal(t, w.Address().ScriptPubKey(), tx.TxOut[2].PkScript)
				assert.Greater(t, tx.TxOut[2].Value, w.Address().Postage())
				assert.Equal(t, btcutils.FeeForVSize(commit.VirtualSize, spec.FeeRate), commit.Fee)
			} else {
				require.Len(t, tx.TxOut, 2)
				assert.Equal(t, int64(2000), commit.Fee)
				assert.GreaterOrEqual(t, commit.Fee, btcutils.FeeForVSize(commit.VirtualSize, spec.FeeRate))
			}

			prevOuts := make(map[wire.OutPoint]*wire.TxOut)
			for _, utxo := range utxos {
				outPoint, err := utxo.OutPoint()
				require.NoError(t, err)
				prevOuts[outPoint] = wire.NewTxOut(utxo.Satoshi, w.Address().ScriptPubKey())
			}
			for i := range tx.TxIn {
				verifyInput(t, tx, i, prevOuts)
			}
		})
	}
}

func TestCreateCommitTxPaysFeeRate(t *testing.T) {
	type Spec struct {
		Name     string
		AddrType btcutils.AddressType
		FeeRate  int64
	}

	specs := []Spec{
		{Name: "p2wpkh_rate_1", AddrType: btcutils.AddressP2WPKH, FeeRate: 1},
		{Name: "p2wpkh_rate_3", AddrType: btcutils.AddressP2WPKH, FeeRate: 3},
		{Name: "p2tr_rate_1", AddrType: btcutils.AddressP2TR, FeeRate: 1},
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			w := newWallet(t, spec.AddrType)
			outputs := []txbuilder.Output{{Address: w.Address(), Value: 10_000}}
			// DER signature lengths differ with the signed change value
			for value := int64(20_000); value < 20_400; value++ {
				utxos := []*datasources.UTXO{newUTXO(w, 1, value), newUTXO(w, 2, 600)}
				commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{Wallet: w, UTXOs: utxos, Outputs: outputs, FeeRate: spec.FeeRate})
				require.NoError(t, err)

				outputsTotal := lo.SumBy(commit.MsgTx.TxOut, func(out *wire.TxOut) int64 { return out.Value })
				require.Equal(t, value, outputsTotal+commit.Fee, "value=%d", value)
				require.GreaterOrEqual(t, commit.Fee, btcutils.FeeForVSize(commit.VirtualSize, spec.FeeRate), "value=%d", value)
				require.Len(t, commit.MsgTx.TxOut, 2, "value=%d", value)
			}
		})
	}
}

func TestCreateCommitTxErrors(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2TR)
	outputs := []txbuilder.Output{{Address: w.Address(), Value: 1000}}

	type Spec struct {
		Name     string
		Params   txbuilder.CommitParams
		Expected error
	}

	inscribed := newUTXO(w, 3, 10_000)
	inscribed.Inscriptions = []datasources.UTXOInscription{{InscriptionID: "abc", Offset: 0}}

	specs := []Spec{
		{
			Name:     "insufficient_funds",
			Params:   txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{newUTXO(w, 1, 1200)}, Outputs: outputs, FeeRate: 10},
			Expected: txbuilder.ErrInsufficientFunds,
		},
		{
			Name:     "no_utxos",
			Params:   txbuilder.CommitParams{Wallet: w, Outputs: outputs, FeeRate: 1},
			Expected: txbuilder.ErrInsufficientFunds,
		},
		{
			Name:     "unsafe_utxo",
			Params:   txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{newUTXO(w, 1, 50_000), inscribed}, Outputs: outputs, FeeRate: 1},
			Expected: txbuilder.ErrUnsafeUTXO,
		},
		{
			Name:     "dust_output",
			Params:   txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{newUTXO(w, 1, 50_000)}, Outputs: []txbuilder.Output{{Address: w.Address(), Value: 100}}, FeeRate: 1},
			Expected: errs.InvalidArgument,
		},
		{
			Name:     "zero_fee_rate",
			Params:   txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{newUTXO(w, 1, 50_000)}, Outputs: outputs},
			Expected: errs.InvalidArgument,
		},
		{
			Name:     "foreign_utxo",
			Params:   txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{{TxID: chainhash.Hash{9}.String(), Satoshi: 50_000, ScriptPk: "0014" + strings.Repeat("11", 20)}}, Outputs: outputs, FeeRate: 1},
			Expected: txbuilder.ErrSigning,
		},
	}

	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			_, err := txbuilder.CreateCommitTx(spec.Params)
			assert.ErrorIs(t, err, spec.Expected)
		})
	}

	t.Run("allow_assets", func(t *testing.T) {
		_, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{Wallet: w, UTXOs: []*datasources.UTXO{inscribed}, Outputs: outputs, FeeRate: 1, AllowAssets: true})
		assert.NoError(t, err)
	})
}

func TestCreateCommitTxWithRunestone(t *testing.T) {
	w := newWallet(t, btcutils.AddressP2WPKH)
	runestone := runes.NewMintRunestone(runes.RuneID{Block: 840000, Tx: 3}, 1)
	commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{
		Wallet:    w,
		UTXOs:     []*datasources.UTXO{newUTXO(w, 1, 100_000)},
		Outputs:   []txbuilder.Output{{Address: w.Address(), Value: 5_000}},
		FeeRate:   2,
		Runestone: &runestone,
	})
	require.NoError(t, err)

	tx := commit.MsgTx
	require.Len(t, tx.TxOut, 3)
	assert.Equal(t, "6a5d0814c0a23314031601", hex.EncodeToString(tx.TxOut[0].PkScript))
	assert.Zero(t, tx.TxOut[0].Value)
	assert.Equal(t, int64(5_000), tx.TxOut[1].Value)
	assert.Equal(t, btcutils.MaxTxInSequenceNum, tx.TxIn[0].Sequence)
}

func TestCreateMintTxs(t *testing.T) {
	mintWallet := newWallet(t, btcutils.AddressP2TR)
	destination := btcutils.NewAddress("bc1qfpgdxtpl7kz5qdus2pmexyjaza99c28q8uyczh", testNet)
	runestone := runes.NewMintRunestone(runes.RuneID{Block: 840000, Tx: 3}, 1)

	perMintFee, err := txbuilder.EstimateMintFee(mintWallet, runestone, []btcutils.Address{mintWallet.Address(), destination}, 10)
	require.NoError(t, err)
	require.Positive(t, perMintFee)

	const count = 4
	commitID := chainhash.Hash{0x77}
	commitAmount := perMintFee*count + destination.Postage()
	mints, err := txbuilder.CreateMintTxs(txbuilder.MintChainParams{
		Wallet:       mintWallet,
		Runestone:    runestone,
		Count:        count,
		CommitTxID:   commitID,
		CommitAmount: commitAmount,
		PerMintFee:   perMintFee,
		Destination:  destination,
	})
	require.NoError(t, err)
	require.Len(t, mints, count)

	parent, amount := commitID, commitAmount
	for i, mint := range mints {
		tx := mint.MsgTx
		require.Len(t, tx.TxIn, 1)
		assert.Equal(t, *wire.NewOutPoint(&parent, txbuilder.MintOutputIndex), tx.TxIn[0].PreviousOutPoint, "mint %d", i)

		require.Len(t, tx.TxOut, 2)
		assert.Equal(t, "6a5d0814c0a23314031601", hex.EncodeToString(tx.TxOut[0].PkScript))
		assert.Equal(t, amount-perMintFee, tx.TxOut[1].Value)
		if i == count-1 {
			assert.Equal(t, destination.ScriptPubKey(), tx.TxOut[1].PkScript)
			assert.Equal(t, destination.Postage(), tx.TxOut[1].Value)
		} else {
			assert.Equal(t, mintWallet.Address().ScriptPubKey(), tx.TxOut[1].PkScript)
		}
		assert.LessOrEqual(t, btcutils.FeeForVSize(mint.VirtualSize, 10), perMintFee)

		verifyInput(t, tx, 0, map[wire.OutPoint]*wire.TxOut{
			tx.TxIn[0].PreviousOutPoint: wire.NewTxOut(amount, mintWallet.Address().ScriptPubKey()),
		})

		parent, amount = tx.TxHash(), tx.TxOut[1].Value
	}

	t.Run("insufficient_value", func(t *testing.T) {
		_, err := txbuilder.CreateMintTxs(txbuilder.MintChainParams{
			Wallet:       mintWallet,
			Runestone:    runestone,
			Count:        count,
			CommitTxID:   commitID,
			CommitAmount: perMintFee*count + destination.Postage() - 1,
			PerMintFee:   perMintFee,
			Destination:  destination,
		})
		assert.ErrorIs(t, err, txbuilder.ErrInsufficientValue)
	})

	t.Run("zero_count", func(t *testing.T) {
		mints, err := txbuilder.CreateMintTxs(txbuilder.MintChainParams{Wallet: mintWallet, Runestone: runestone, Destination: destination})
		require.NoError(t, err)
		assert.Empty(t, mints)
	})
}
