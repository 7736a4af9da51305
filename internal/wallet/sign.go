package wallet

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// SignPsbt signs the inputs at indexes with the wallet key. Every input of the packet must carry its WitnessUtxo.
//
// Inputs with a TaprootLeafScript are signed through the script path with the untweaked key.
// Other P2TR inputs are signed through the key path, and P2WPKH inputs get an ECDSA partial signature.
func (w *Wallet) SignPsbt(packet *psbt.Packet, indexes ...int) error {
	tx := packet.UnsignedTx
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, input := range packet.Inputs {
		if input.WitnessUtxo == nil {
			return errors.Wrapf(errs.InvalidArgument, "input %d has no witness utxo", i)
		}
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, input.WitnessUtxo)
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for _, index := range indexes {
		if index < 0 || index >= len(packet.Inputs) {
			return errors.Wrapf(errs.InvalidArgument, "invalid input index %d", index)
		}
		if err := w.signInput(packet, index, sigHashes); err != nil {
			return errors.Wrapf(err, "can't sign input %d", index)
		}
	}
	return nil
}

func (w *Wallet) signInput(packet *psbt.Packet, index int, sigHashes *txscript.TxSigHashes) error {
	var (
		tx       = packet.UnsignedTx
		input    = &packet.Inputs[index]
		value    = input.WitnessUtxo.Value
		pkScript = input.WitnessUtxo.PkScript
	)

	switch {
	case len(input.TaprootLeafScript) > 0:
		leafScript := input.TaprootLeafScript[0]
		leaf := txscript.NewTapLeaf(leafScript.LeafVersion, leafScript.Script)
		sig, err := txscript.RawTxInTapscriptSignature(tx, sigHashes, index, value, pkScript, leaf, txscript.SigHashDefault, w.privateKey)
		if err != nil {
			return errors.WithStack(err)
		}
		leafHash := leaf.TapHash()
		input.TaprootScriptSpendSig = append(input.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
			XOnlyPubKey: w.XOnlyPubKey(),
			LeafHash:    leafHash.CloneBytes(),
			Signature:   sig,
			SigHash:     txscript.SigHashDefault,
		})
		return nil

	case txscript.IsPayToTaproot(pkScript):
		if !bytes.Equal(pkScript, w.address.ScriptPubKey()) {
			return errors.Wrap(errs.InvalidArgument, "input is not locked to the wallet address")
		}
		sig, err := txscript.RawTxInTaprootSignature(tx, sigHashes, index, value, pkScript, nil, txscript.SigHashDefault, w.privateKey)
		if err != nil {
			return errors.WithStack(err)
		}
		input.TaprootKeySpendSig = sig
		input.TaprootInternalKey = w.XOnlyPubKey()
		return nil

	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		if !bytes.Equal(pkScript, w.address.ScriptPubKey()) {
			return errors.Wrap(errs.InvalidArgument, "input is not locked to the wallet address")
		}
		sig, err := txscript.RawTxInWitnessSignature(tx, sigHashes, index, value, pkScript, txscript.SigHashAll, w.privateKey)
		if err != nil {
			return errors.WithStack(err)
		}
		input.PartialSigs = append(input.PartialSigs, &psbt.PartialSig{
			PubKey:    w.PubKey().SerializeCompressed(),
			Signature: sig,
		})
		return nil

	default:
		return errors.Wrap(errs.Unsupported, "unsupported input script type")
	}
}

// Finalize finalizes every input of a fully signed packet and extracts the network transaction.
func Finalize(packet *psbt.Packet) (*wire.MsgTx, error) {
	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return nil, errors.Wrap(err, "can't finalize psbt")
	}
	tx, err := psbt.Extract(packet)
	if err != nil {
		return nil, errors.Wrap(err, "can't extract transaction")
	}
	return tx, nil
}
