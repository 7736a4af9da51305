package btcutils

import "github.com/btcsuite/btcd/txscript"

// AddressType is the script class an address pays to.
type AddressType = txscript.ScriptClass

// Wallets are P2TR or P2WPKH. The other types are accepted as destinations.
const (
	AddressP2TR   = txscript.WitnessV1TaprootTy
	AddressP2WPKH = txscript.WitnessV0PubKeyHashTy
	AddressP2WSH  = txscript.WitnessV0ScriptHashTy
	AddressP2SH   = txscript.ScriptHashTy
	AddressP2PKH  = txscript.PubKeyHashTy
)
