package txbuilder

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/internal/ordinals"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

const (
	estimateRevealValue = btcutils.PostageDefault
	estimateMintInput   = 100_000_000
)

// EstimateRevealSize signs a throwaway reveal of tapScript and returns its virtual size.
// Schnorr signatures have a fixed length, so the real reveal has exactly this size.
func EstimateRevealSize(w *wallet.Wallet, tapScript *ordinals.TapScript, destination btcutils.Address) (int64, error) {
	tx, err := buildRevealTx(RevealParams{
		Wallet:      w,
		CommitTxID:  common.ZeroHash,
		Index:       0,
		InputValue:  estimateRevealValue,
		Destination: destination,
		Postage:     estimateRevealValue,
		TapScript:   tapScript,
	})
	if err != nil {
		return 0, errors.Wrap(err, "can't estimate reveal size")
	}
	return btcutils.VirtualSize(tx), nil
}

// EstimateMintFee returns the fee of a single mint hop at feeRate, the largest among destinations.
func EstimateMintFee(w *wallet.Wallet, runestone runes.Runestone, destinations []btcutils.Address, feeRate int64) (int64, error) {
	pkScript, err := runestone.Encipher()
	if err != nil {
		return 0, errors.Wrap(err, "can't encipher runestone")
	}

	var fee int64
	for _, destination := range destinations {
		tx := wire.NewMsgTx(btcutils.TxVersion)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&common.ZeroHash, 0), nil, nil))
		tx.AddTxOut(wire.NewTxOut(0, pkScript))
		tx.AddTxOut(wire.NewTxOut(btcutils.PostageDefault, destination.ScriptPubKey()))

		prevOut := wire.NewTxOut(estimateMintInput, w.Address().ScriptPubKey())
		signed, err := signTx(w, tx, []*wire.TxOut{prevOut}, nil)
		if err != nil {
			return 0, errors.Wrap(err, "can't estimate mint fee")
		}
		fee = max(fee, btcutils.FeeForVSize(btcutils.VirtualSize(signed), feeRate))
	}
	return fee, nil
}
