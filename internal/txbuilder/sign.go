package txbuilder

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/ordinals"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/samber/lo"
)

// signTx signs every input of tx with w. prevOuts[i] is the output spent by input i.
// When tapScript is set, input 0 is spent through the inscription leaf.
func signTx(w *wallet.Wallet, tx *wire.MsgTx, prevOuts []*wire.TxOut, tapScript *ordinals.TapScript) (*wire.MsgTx, error) {
	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, errs.WithKind(errors.Wrap(err, "can't create psbt"), ErrSigning)
	}
	for i, prevOut := range prevOuts {
		packet.Inputs[i].WitnessUtxo = prevOut
	}
	if tapScript != nil {
		packet.Inputs[0].TaprootInternalKey = w.XOnlyPubKey()
		packet.Inputs[0].TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
			ControlBlock: tapScript.ControlBlock,
			Script:       tapScript.Script,
			LeafVersion:  tapScript.Leaf.LeafVersion,
		}}
	}

	if err := w.SignPsbt(packet, lo.Range(len(prevOuts))...); err != nil {
		return nil, errs.WithKind(errors.WithStack(err), ErrSigning)
	}
	signed, err := wallet.Finalize(packet)
	if err != nil {
		return nil, errs.WithKind(errors.WithStack(err), ErrSigning)
	}
	return signed, nil
}
