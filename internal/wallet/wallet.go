// Package wallet holds the one-shot signing key of a command run.
package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

type Wallet struct {
	privateKey *btcec.PrivateKey
	address    btcutils.Address
	net        *chaincfg.Params
}

// FromWIF decodes a WIF private key. Only P2TR and P2WPKH wallets are supported.
func FromWIF(wif string, addrType btcutils.AddressType, net *chaincfg.Params) (*Wallet, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidConfig, "invalid WIF private key")
	}
	if !decoded.IsForNet(net) {
		return nil, errors.Wrapf(errs.InvalidConfig, "WIF private key is not for network %s", net.Name)
	}
	return New(decoded.PrivKey, addrType, net)
}

// Random creates a wallet from a freshly generated private key.
func Random(addrType btcutils.AddressType, net *chaincfg.Params) (*Wallet, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "can't generate private key")
	}
	return New(privateKey, addrType, net)
}

func New(privateKey *btcec.PrivateKey, addrType btcutils.AddressType, net *chaincfg.Params) (*Wallet, error) {
	var (
		decoded btcutil.Address
		err     error
	)
	switch addrType {
	case btcutils.AddressP2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(privateKey.PubKey())
		decoded, err = btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), net)
	case btcutils.AddressP2WPKH:
		decoded, err = btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(privateKey.PubKey().SerializeCompressed()), net)
	default:
		return nil, errors.Wrapf(errs.Unsupported, "unsupported wallet address type %s", addrType)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't create wallet address")
	}

	address, err := btcutils.AddressFromDecoded(decoded, net)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Wallet{
		privateKey: privateKey,
		address:    address,
		net:        net,
	}, nil
}

func (w *Wallet) Address() btcutils.Address {
	return w.address
}

func (w *Wallet) AddressType() btcutils.AddressType {
	return w.address.Type()
}

func (w *Wallet) Net() *chaincfg.Params {
	return w.net
}

func (w *Wallet) PubKey() *btcec.PublicKey {
	return w.privateKey.PubKey()
}

// XOnlyPubKey returns the BIP-340 serialization of the untweaked public key.
func (w *Wallet) XOnlyPubKey() []byte {
	return schnorr.SerializePubKey(w.privateKey.PubKey())
}

// WIF exports the private key, compressed, for the wallet network.
func (w *Wallet) WIF() (string, error) {
	wif, err := btcutil.NewWIF(w.privateKey, w.net, true)
	if err != nil {
		return "", errors.Wrap(err, "can't encode WIF")
	}
	return wif.String(), nil
}
