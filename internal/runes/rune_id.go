package runes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// RuneID identifies a rune by the block and the transaction index of its etching, e.g. "840000:3".
type RuneID struct {
	Block uint64
	Tx    uint32
}

// ParseRuneID parses a rune id in `block:tx` form.
func ParseRuneID(str string) (RuneID, error) {
	block, tx, ok := strings.Cut(strings.TrimSpace(str), ":")
	if !ok || strings.Contains(tx, ":") {
		return RuneID{}, errors.Wrapf(errs.InvalidArgument, "invalid rune id %q: must be in `block:tx` form", str)
	}
	blockHeight, err := strconv.ParseUint(block, 10, 64)
	if err != nil {
		return RuneID{}, errors.Wrapf(errs.InvalidArgument, "invalid rune id %q: cannot parse block", str)
	}
	txIndex, err := strconv.ParseUint(tx, 10, 32)
	if err != nil {
		return RuneID{}, errors.Wrapf(errs.InvalidArgument, "invalid rune id %q: cannot parse tx index", str)
	}
	if blockHeight == 0 && txIndex != 0 {
		return RuneID{}, errors.Wrapf(errs.InvalidArgument, "invalid rune id %q: zero block with non-zero tx index", str)
	}
	return RuneID{Block: blockHeight, Tx: uint32(txIndex)}, nil
}

func (r RuneID) String() string {
	return fmt.Sprintf("%d:%d", r.Block, r.Tx)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (r RuneID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (r *RuneID) UnmarshalText(text []byte) error {
	id, err := ParseRuneID(string(text))
	if err != nil {
		return err
	}
	*r = id
	return nil
}
