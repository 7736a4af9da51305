// Package dump persists the signed transactions of a run so that they can be broadcast again later.
package dump

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
)

// ArchiveTimeLayout names archived dumps.
const ArchiveTimeLayout = "2006-01-02 15:04:05"

type MintWallet struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

type Dump struct {
	CommitTxID    string   `json:"commitTxId"`
	CommitTxHex   string   `json:"commitTxHex"`
	RevealTxIDs   []string `json:"revealTxIds,omitempty"`
	RevealTxHexes []string `json:"revealTxHexes,omitempty"`
	MintTxIDs     []string `json:"mintTxIds,omitempty"`
	MintTxHexes   []string `json:"mintTxHexes,omitempty"`

	FeeRate     int64  `json:"feeRate"`
	SpendSats   int64  `json:"spendSats"`
	Payment     string `json:"payment"`
	Destination string `json:"destination"`

	// Inscription is the inscribed text, embedded as is when it is valid JSON.
	Inscription json.RawMessage `json:"inscription,omitempty"`
	Files       []string        `json:"files,omitempty"`
	Count       int             `json:"count"`
	Rune        string          `json:"rune,omitempty"`
	MintWallet  *MintWallet     `json:"mintWallet,omitempty"`

	Network   common.Network `json:"network"`
	CreatedAt time.Time      `json:"createdAt"`
}

// SetInscriptionText stores text as raw JSON when it parses, otherwise as a JSON string.
func (d *Dump) SetInscriptionText(text string) {
	if json.Valid([]byte(text)) {
		d.Inscription = json.RawMessage(bytes.TrimSpace([]byte(text)))
		return
	}
	quoted, _ := json.Marshal(text)
	d.Inscription = quoted
}

// InscriptionText returns the inscription as text. A JSON string is unquoted.
func (d *Dump) InscriptionText() string {
	var text string
	if err := json.Unmarshal(d.Inscription, &text); err == nil {
		return text
	}
	return string(d.Inscription)
}

// IsMintChain reports whether the children form a rune mint chain.
func (d *Dump) IsMintChain() bool {
	return len(d.MintTxHexes) > 0
}

func (d *Dump) Validate() error {
	if d.CommitTxHex == "" {
		return errors.Wrap(errs.InvalidArgument, "dump has no commit transaction")
	}
	if len(d.RevealTxHexes) > 0 && len(d.MintTxHexes) > 0 {
		return errors.Wrap(errs.InvalidArgument, "dump has both reveal and mint transactions")
	}
	return nil
}

// Store writes dumps to a fixed path and keeps a timestamped copy of each in the archive directory.
type Store struct {
	path       string
	archiveDir string
	now        func() time.Time
}

func NewStore(path, archiveDir string) *Store {
	return &Store{
		path:       path,
		archiveDir: archiveDir,
		now:        time.Now,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Write stores d at the store path and in the archive. It returns the archive path.
func (s *Store) Write(d *Dump) (string, error) {
	if err := d.Validate(); err != nil {
		return "", errors.WithStack(err)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "can't marshal dump")
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data); err != nil {
		return "", errors.Wrap(err, "can't write dump")
	}

	archivePath, err := s.archivePath(d.CreatedAt)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err := writeFileAtomic(archivePath, data); err != nil {
		return "", errors.Wrap(err, "can't write dump archive")
	}
	return archivePath, nil
}

// archivePath picks an unused archive file name for t.
func (s *Store) archivePath(t time.Time) (string, error) {
	base := t.Local().Format(ArchiveTimeLayout)
	path := filepath.Join(s.archiveDir, base+".json")
	for i := 1; ; i++ {
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "can't stat archive")
		}
		path = filepath.Join(s.archiveDir, fmt.Sprintf("%s (%d).json", base, i))
	}
}

// Read loads the dump at the store path. It returns errs.NotFound when there is none.
func (s *Store) Read() (*Dump, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(errs.NotFound, "no dump at %s", s.path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't read dump")
	}
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "can't parse dump %s: %v", s.path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return &d, nil
}

// writeFileAtomic replaces path with data through a synced temporary file.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.WithStack(err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WithStack(err)
	}

	// persist the rename
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
