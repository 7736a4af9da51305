package ordinals

import (
	"bytes"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/samber/lo"
)

type Envelope struct {
	Inscription Inscription
	InputIndex  uint32 // Index of input that contains the envelope
}

// ParseEnvelopesFromTx extracts the inscriptions revealed by the script-path spends of tx.
// Fields other than the content type are ignored.
func ParseEnvelopesFromTx(tx *wire.MsgTx) []Envelope {
	envelopes := make([]Envelope, 0)
	for i, txIn := range tx.TxIn {
		tokenizer, ok := extractTapScript(txIn.Witness)
		if !ok {
			continue
		}
		for tokenizer.Next() {
			if tokenizer.Opcode() != txscript.OP_FALSE {
				continue
			}
			if inscription, ok := inscriptionFromTokenizer(&tokenizer); ok {
				envelopes = append(envelopes, Envelope{
					Inscription: inscription,
					InputIndex:  uint32(i),
				})
			}
		}
	}
	return envelopes
}

func inscriptionFromTokenizer(tokenizer *txscript.ScriptTokenizer) (Inscription, bool) {
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_IF {
		return Inscription{}, false
	}
	if !tokenizer.Next() || !bytes.Equal(tokenizer.Data(), protocolID) {
		return Inscription{}, false
	}

	payload := make([][]byte, 0)
	for tokenizer.Next() {
		opCode := tokenizer.Opcode()
		if opCode == txscript.OP_ENDIF {
			break
		}
		switch {
		case opCode == txscript.OP_0:
			payload = append(payload, []byte{})
		case opCode >= txscript.OP_1 && opCode <= txscript.OP_16:
			payload = append(payload, []byte{opCode - txscript.OP_1 + 1})
		default:
			data := tokenizer.Data()
			if data == nil {
				return Inscription{}, false
			}
			payload = append(payload, data)
		}
	}
	// incomplete envelope
	if tokenizer.Err() != nil || tokenizer.Opcode() != txscript.OP_ENDIF {
		return Inscription{}, false
	}

	var inscription Inscription
	for i := 0; i < len(payload); i += 2 {
		if len(payload[i]) == 0 {
			inscription.Content = lo.Flatten(payload[i+1:])
			break
		}
		if i+1 >= len(payload) {
			return Inscription{}, false
		}
		if Tag(payload[i][0]) == TagContentType && inscription.ContentType == "" {
			inscription.ContentType = string(payload[i+1])
		}
	}
	return inscription, true
}

func extractTapScript(witness wire.TxWitness) (txscript.ScriptTokenizer, bool) {
	witness = removeAnnexFromWitness(witness)
	if len(witness) < 2 {
		return txscript.ScriptTokenizer{}, false
	}
	script := witness[len(witness)-2]

	return txscript.MakeScriptTokenizer(0, script), true
}

func removeAnnexFromWitness(witness wire.TxWitness) wire.TxWitness {
	if len(witness) >= 2 && len(witness[len(witness)-1]) > 0 && witness[len(witness)-1][0] == txscript.TaprootAnnexTag {
		return witness[:len(witness)-1]
	}
	return witness
}
