package ordinals

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

// TapScript is a single-leaf taproot output committing to an inscription envelope.
type TapScript struct {
	Script       []byte
	Leaf         txscript.TapLeaf
	ControlBlock []byte
	InternalKey  *btcec.PublicKey
	Address      btcutils.Address
}

// PkScript returns the scriptPubKey of the taproot output.
func (t *TapScript) PkScript() []byte {
	return t.Address.ScriptPubKey()
}

// NewTapScript commits inscription to a taproot output whose internal key is internalKey.
// The envelope is spendable by the same key through the script path.
func NewTapScript(internalKey *btcec.PublicKey, inscription Inscription, net *chaincfg.Params) (*TapScript, error) {
	script, err := inscription.EnvelopeScript(schnorr.SerializePubKey(internalKey))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	leaf := txscript.NewBaseTapLeaf(script)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	cb := tree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	controlBlock, err := cb.ToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "can't serialize control block")
	}

	rootHash := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])
	decoded, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), net)
	if err != nil {
		return nil, errors.Wrap(err, "can't create taproot address")
	}
	address, err := btcutils.AddressFromDecoded(decoded, net)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &TapScript{
		Script:       script,
		Leaf:         leaf,
		ControlBlock: controlBlock,
		InternalKey:  internalKey,
		Address:      address,
	}, nil
}
