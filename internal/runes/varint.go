package runes

import (
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/uint128"
)

const (
	ErrVarintEmpty        = errs.ErrorKind("runes: empty varint")
	ErrVarintUnterminated = errs.ErrorKind("runes: unterminated varint")
)

// maxVarintLen is the longest LEB128 encoding of a uint128.
const maxVarintLen = 19

// encodeVarint appends the LEB128 encoding of n to dst.
func encodeVarint(dst []byte, n uint128.Uint128) []byte {
	for !n.Rsh(7).IsZero() {
		dst = append(dst, n.And64(0x7f).Uint8()|0x80)
		n = n.Rsh(7)
	}
	return append(dst, n.Uint8())
}

// decodeVarint reads one LEB128 integer from the head of data and returns it with the number of bytes read.
func decodeVarint(data []byte) (uint128.Uint128, int, error) {
	if len(data) == 0 {
		return uint128.Zero, 0, ErrVarintEmpty
	}

	n := uint128.Zero
	for i, b := range data {
		if i >= maxVarintLen {
			return uint128.Zero, 0, errs.Overflow
		}
		value := uint128.From64(uint64(b & 0x7f))
		// the 19th byte may only carry the top 2 bits
		if i == maxVarintLen-1 && b&0x7c != 0 {
			return uint128.Zero, 0, errs.Overflow
		}
		n = n.Or(value.Lsh(uint(7 * i)))
		if b&0x80 == 0 {
			return n, i + 1, nil
		}
	}
	return uint128.Zero, 0, ErrVarintUnterminated
}
