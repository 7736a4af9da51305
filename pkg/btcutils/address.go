package btcutils

import (
	"bytes"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// Postage is the smallest value an output carrying an inscription or a rune may hold.
const (
	PostageSegwit  int64 = 330
	PostageDefault int64 = 546
)

// Address is a decoded address bound to the network it was parsed for. The zero value is not usable.
type Address struct {
	decoded btcutil.Address
	net     *chaincfg.Params
	typ     AddressType
	script  []byte
}

// IsAddress reports whether address decodes to a supported type on net.
func IsAddress(address string, net *chaincfg.Params) bool {
	_, err := SafeNewAddress(address, net)
	return err == nil
}

func GetAddressType(address string, net *chaincfg.Params) (AddressType, error) {
	addr, err := SafeNewAddress(address, net)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return addr.typ, nil
}

// NewAddress is [SafeNewAddress] for addresses known to be valid. It panics otherwise.
func NewAddress(address string, net ...*chaincfg.Params) Address {
	return utils.Must(SafeNewAddress(address, net...))
}

// SafeNewAddress parses address for net, mainnet when omitted.
// Bech32 addresses only decode on the network whose prefix they carry.
func SafeNewAddress(address string, net ...*chaincfg.Params) (Address, error) {
	params := utils.DefaultOptional(net, &chaincfg.MainNetParams)
	if address == "" {
		return Address{}, errors.Wrap(errs.InvalidArgument, "empty address")
	}
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return Address{}, errors.Wrapf(err, "can't decode address %q for network %s", address, params.Name)
	}
	return AddressFromDecoded(decoded, params)
}

// AddressFromDecoded wraps an address decoded or derived elsewhere, e.g. from a key.
func AddressFromDecoded(decoded btcutil.Address, net *chaincfg.Params) (Address, error) {
	var typ AddressType
	switch decoded.(type) {
	case *btcutil.AddressTaproot:
		typ = AddressP2TR
	case *btcutil.AddressWitnessPubKeyHash:
		typ = AddressP2WPKH
	case *btcutil.AddressWitnessScriptHash:
		typ = AddressP2WSH
	case *btcutil.AddressScriptHash:
		typ = AddressP2SH
	case *btcutil.AddressPubKeyHash:
		typ = AddressP2PKH
	default:
		return Address{}, errors.Wrapf(errs.Unsupported, "address type %T", decoded)
	}

	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return Address{}, errors.Wrap(err, "can't build script pubkey")
	}
	return Address{decoded: decoded, net: net, typ: typ, script: script}, nil
}

func (a Address) String() string {
	if a.decoded == nil {
		return ""
	}
	return a.decoded.EncodeAddress()
}

func (a Address) Type() AddressType { return a.typ }

func (a Address) Net() *chaincfg.Params { return a.net }

func (a Address) IsForNet(net *chaincfg.Params) bool {
	return a.decoded != nil && a.decoded.IsForNet(net)
}

// ScriptPubKey returns a copy of the output script paying to the address.
func (a Address) ScriptPubKey() []byte {
	return bytes.Clone(a.script)
}

func (a Address) Equal(b Address) bool {
	return bytes.Equal(a.script, b.script)
}

// Postage returns the output value used for inscriptions and mints sent to the address.
func (a Address) Postage() int64 {
	switch a.typ {
	case AddressP2TR, AddressP2WPKH:
		return PostageSegwit
	default:
		return PostageDefault
	}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// textNets are tried in order when decoding an address without a known network.
// Both Fractal networks encode addresses like Bitcoin mainnet.
var textNets = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.SigNetParams,
	&chaincfg.RegressionNetParams,
}

// UnmarshalText accepts an address of any supported network.
func (a *Address) UnmarshalText(text []byte) error {
	for _, net := range textNets {
		if addr, err := SafeNewAddress(string(text), net); err == nil && addr.IsForNet(net) {
			*a = addr
			return nil
		}
	}
	return errors.Wrapf(errs.InvalidArgument, "invalid address %q", string(text))
}
