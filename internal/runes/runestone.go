package runes

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

// MagicNumber follows OP_RETURN in every runestone output.
const MagicNumber = txscript.OP_13

// Tags understood by this package. Runestones carrying other tags are rejected by [Decipher].
var (
	TagMint    = uint128.From64(20)
	TagPointer = uint128.From64(22)
)

// ErrNotRunestone is returned by [Decipher] when the script is not a runestone.
const ErrNotRunestone = errs.ErrorKind("not a runestone")

// Runestone is a mint runestone. Etching and edicts are out of scope for this tool.
type Runestone struct {
	// The rune to mint in this transaction
	Mint *RuneID
	// Output that receives the minted runes. If nil, the first non-OP_RETURN output.
	Pointer *uint32
}

// NewMintRunestone returns a runestone minting id into output pointer.
func NewMintRunestone(id RuneID, pointer uint32) Runestone {
	return Runestone{
		Mint:    &id,
		Pointer: &pointer,
	}
}

// Encipher encodes a runestone into a scriptPubKey, ready to be put into a zero-value transaction output.
func (r Runestone) Encipher() ([]byte, error) {
	var payload []byte
	encodeTagValues := func(tag uint128.Uint128, values ...uint128.Uint128) {
		for _, value := range values {
			payload = encodeVarint(payload, tag)
			payload = encodeVarint(payload, value)
		}
	}

	if r.Mint != nil {
		encodeTagValues(TagMint, uint128.From64(r.Mint.Block), uint128.From64(uint64(r.Mint.Tx)))
	}
	if r.Pointer != nil {
		encodeTagValues(TagPointer, uint128.From64(uint64(*r.Pointer)))
	}

	sb := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddOp(MagicNumber)

	// chunk payload to MaxScriptElementSize
	for _, chunk := range lo.Chunk(payload, txscript.MaxScriptElementSize) {
		sb.AddData(chunk)
	}

	scriptPubKey, err := sb.Script()
	if err != nil {
		return nil, errors.Wrap(err, "cannot build scriptPubKey")
	}
	return scriptPubKey, nil
}

// Decipher decodes a mint runestone from a scriptPubKey.
func Decipher(pkScript []byte) (*Runestone, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, pkScript)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, errors.WithStack(ErrNotRunestone)
	}
	if !tokenizer.Next() || tokenizer.Opcode() != MagicNumber {
		return nil, errors.WithStack(ErrNotRunestone)
	}

	payload := make([]byte, 0)
	for tokenizer.Next() {
		if tokenizer.Opcode() > txscript.OP_PUSHDATA4 {
			return nil, errors.Wrap(errs.InvalidArgument, "runestone payload contains a non-push opcode")
		}
		payload = append(payload, tokenizer.Data()...)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, errors.Wrap(err, "invalid runestone script")
	}

	integers := make([]uint128.Uint128, 0)
	for i := 0; i < len(payload); {
		n, length, err := decodeVarint(payload[i:])
		if err != nil {
			return nil, errors.Wrap(err, "cannot decode runestone varint")
		}
		integers = append(integers, n)
		i += length
	}
	if len(integers)%2 != 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "runestone payload has a truncated field")
	}

	var (
		runestone Runestone
		mint      []uint128.Uint128
	)
	for _, field := range lo.Chunk(integers, 2) {
		tag, value := field[0], field[1]
		switch {
		case tag.Cmp(TagMint) == 0:
			mint = append(mint, value)
		case tag.Cmp(TagPointer) == 0:
			if !value.IsUint32() {
				return nil, errors.Wrap(errs.Overflow, "runestone pointer overflows uint32")
			}
			runestone.Pointer = lo.ToPtr(value.Uint32())
		default:
			return nil, errors.Wrapf(errs.Unsupported, "unsupported runestone tag %s", tag)
		}
	}
	if len(mint) > 0 {
		if len(mint) != 2 || !mint[0].IsUint64() || !mint[1].IsUint32() {
			return nil, errors.Wrap(errs.InvalidArgument, "invalid runestone mint field")
		}
		runestone.Mint = &RuneID{Block: mint[0].Uint64(), Tx: mint[1].Uint32()}
	}
	return &runestone, nil
}
