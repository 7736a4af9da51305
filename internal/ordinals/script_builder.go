package ordinals

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// PushScriptBuilder builds scripts whose data pushes always use OP_DATA_* or OP_PUSHDATA* opcodes,
// so a single 0x01 byte stays a data push instead of becoming OP_1. Empty pushes are encoded as OP_0.
//
// Unlike txscript.ScriptBuilder it does not enforce txscript.MaxScriptSize, which tapscript leaves do not have.
type PushScriptBuilder struct {
	script []byte
	err    error
}

func NewPushScriptBuilder() *PushScriptBuilder {
	return &PushScriptBuilder{}
}

func pushDataToBytes(data []byte) []byte {
	if len(data) == 0 {
		return []byte{txscript.OP_0}
	}
	dataLen := len(data)
	script := make([]byte, 0, dataLen+5)
	switch {
	case dataLen < txscript.OP_PUSHDATA1:
		script = append(script, byte(txscript.OP_DATA_1-1+dataLen))
	case dataLen <= 0xff:
		script = append(script, txscript.OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(dataLen))
		script = append(script, txscript.OP_PUSHDATA2)
		script = append(script, buf...)
	default:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(dataLen))
		script = append(script, txscript.OP_PUSHDATA4)
		script = append(script, buf...)
	}
	return append(script, data...)
}

// AddData pushes data to the end of the script. Pushes larger than
// txscript.MaxScriptElementSize are rejected because the script engine can't execute them.
func (b *PushScriptBuilder) AddData(data []byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > txscript.MaxScriptElementSize {
		str := fmt.Sprintf("adding a data element of %d bytes would "+
			"exceed the maximum allowed script element size of %d",
			len(data), txscript.MaxScriptElementSize)
		b.err = txscript.ErrScriptNotCanonical(str)
		return b
	}

	b.script = append(b.script, pushDataToBytes(data)...)
	return b
}

// AddOp pushes the passed opcode to the end of the script.
func (b *PushScriptBuilder) AddOp(opcode byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

// Script returns the built script, or the first error that occurred while building it.
func (b *PushScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
