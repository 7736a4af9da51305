// Package journal keeps a local record of every broadcast outcome, keyed by transaction id.
package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"go.etcd.io/bbolt"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusRequeued  Status = "requeued"
	StatusSkipped   Status = "skipped"
	StatusDropped   Status = "dropped"
	StatusRejected  Status = "rejected"
)

var bucketEntries = []byte("entries")

type Entry struct {
	TxID      string    `json:"txId"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Journal is a bbolt backed broadcast journal.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal file at path. The parent directory is created if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "can't create journal directory")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "can't open journal %s", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return errors.WithStack(err)
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "can't create journal bucket")
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return errors.WithStack(j.db.Close())
}

// Shutdown closes the journal. It lets a DI container release the file lock.
func (j *Journal) Shutdown() error {
	return j.Close()
}

// Record stores the latest outcome of txID and increments its attempt counter.
func (j *Journal) Record(ctx context.Context, txID string, status Status, reason string) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if txID == "" {
		return errors.Wrap(errs.InvalidArgument, "empty tx id")
	}
	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		entry := Entry{TxID: txID}
		if data := bucket.Get([]byte(txID)); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				return errors.Wrapf(err, "can't decode journal entry %s", txID)
			}
		}
		entry.Status = status
		entry.Reason = reason
		entry.Attempts++
		entry.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "can't encode journal entry")
		}
		return errors.WithStack(bucket.Put([]byte(txID), data))
	})
	return errors.Wrapf(err, "can't record %s", txID)
}

// Get returns the entry of txID, or errs.NotFound.
func (j *Journal) Get(ctx context.Context, txID string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	var entry Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(txID))
		if data == nil {
			return errors.Wrapf(errs.NotFound, "no journal entry for %s", txID)
		}
		return errors.Wrapf(json.Unmarshal(data, &entry), "can't decode journal entry %s", txID)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the entries of txIDs in the given order. Unknown ids are skipped.
// Without ids it returns every entry, oldest update first.
func (j *Journal) List(ctx context.Context, txIDs ...string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	entries := make([]Entry, 0, len(txIDs))
	decode := func(data []byte) error {
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return errors.Wrap(err, "can't decode journal entry")
		}
		entries = append(entries, entry)
		return nil
	}
	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		if len(txIDs) == 0 {
			return bucket.ForEach(func(_, v []byte) error { return decode(v) })
		}
		for _, txID := range txIDs {
			if data := bucket.Get([]byte(txID)); data != nil {
				if err := decode(data); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(txIDs) == 0 {
		sort.SliceStable(entries, func(i, k int) bool {
			return entries[i].UpdatedAt.Before(entries[k].UpdatedAt)
		})
	}
	return entries, nil
}
