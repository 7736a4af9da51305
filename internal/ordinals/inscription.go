package ordinals

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/txscript"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	// ContentTypeText is the content type of text inscriptions.
	ContentTypeText = "text/plain;charset=utf-8"

	// ContentTypeDefault is used for files with an unknown extension.
	ContentTypeDefault = "application/octet-stream"

	// ChunkSize is the largest body push inside an envelope.
	ChunkSize = txscript.MaxScriptElementSize
)

var protocolID = []byte("ord")

type Inscription struct {
	ContentType string
	Content     []byte
}

func NewTextInscription(text string) Inscription {
	return Inscription{
		ContentType: ContentTypeText,
		Content:     []byte(text),
	}
}

// ReadFileInscription reads the file at path. The content type is derived from the file extension.
func ReadFileInscription(path string) (Inscription, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Inscription{}, errors.Wrapf(err, "can't read file %s", path)
	}
	return Inscription{
		ContentType: ContentTypeByFileName(path),
		Content:     content,
	}, nil
}

func ContentTypeByFileName(name string) string {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		return ContentTypeDefault
	}
	return contentType
}

// ChunkContent splits data into pushes of at most ChunkSize bytes.
func ChunkContent(data []byte) [][]byte {
	return lo.Chunk(data, ChunkSize)
}

// EnvelopeScript returns the leaf script revealing the inscription, spendable by xOnlyPubKey:
//
//	<xonly> OP_CHECKSIG OP_FALSE OP_IF "ord" 0x01 <content type> OP_0 <body chunks...> OP_ENDIF
func (i Inscription) EnvelopeScript(xOnlyPubKey []byte) ([]byte, error) {
	builder := NewPushScriptBuilder().
		AddData(xOnlyPubKey).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData(protocolID).
		AddData(TagContentType.Bytes()).
		AddData([]byte(i.ContentType)).
		AddData(TagBody.Bytes())
	for _, chunk := range ChunkContent(i.Content) {
		builder.AddData(chunk)
	}
	script, err := builder.AddOp(txscript.OP_ENDIF).Script()
	if err != nil {
		return nil, errors.Wrap(err, "can't build inscription script")
	}
	return script, nil
}
