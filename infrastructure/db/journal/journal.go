// Package journal records submitted operations in a local LevelDB
// database, keyed by transaction id.
package journal

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get for unknown transaction ids.
var ErrNotFound = errors.New("not found in journal")

var entryPrefix = []byte("operation/")

// Entry is the journal record of one operation.
type Entry struct {
	TxID      string          `json:"txid"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
	RawTx     string          `json:"raw_tx"`
	Fee       uint64          `json:"fee"`
	State     string          `json:"state"`
	Error     string          `json:"error,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Journal is a LevelDB backed operation journal. It is safe for
// concurrent use.
type Journal struct {
	ldb *leveldb.DB
	now func() time.Time
}

// Open opens the journal at path, creating it if needed. A corrupted
// database is recovered.
func Open(path string) (*Journal, error) {
	ldb, err := leveldb.OpenFile(path, Options())
	if ldbErrors.IsCorrupted(err) {
		log.Warnf("Journal at %s is corrupted, attempting recovery", path)
		ldb, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open journal at %s", path)
	}
	return &Journal{ldb: ldb, now: time.Now}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return errors.WithStack(j.ldb.Close())
}

func entryKey(txID string) []byte {
	return append(append([]byte(nil), entryPrefix...), txID...)
}

// Put stores entry. CreatedAt is kept from an existing entry with the same
// txid, UpdatedAt is set to the current time.
func (j *Journal) Put(entry *Entry) error {
	if entry.TxID == "" {
		return errors.New("journal entry has no txid")
	}
	now := j.now().UTC()
	existing, err := j.Get(entry.TxID)
	switch {
	case err == nil:
		entry.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
	default:
		return err
	}
	entry.UpdatedAt = now

	serialized, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to serialize journal entry")
	}
	err = j.ldb.Put(entryKey(entry.TxID), serialized, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to store journal entry %s", entry.TxID)
	}
	log.Tracef("Journaled %s as %s", entry.TxID, entry.State)
	return nil
}

// Get returns the entry of txID.
func (j *Journal) Get(txID string) (*Entry, error) {
	serialized, err := j.ldb.Get(entryKey(txID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "transaction %s", txID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read journal entry %s", txID)
	}
	entry := &Entry{}
	err = json.Unmarshal(serialized, entry)
	if err != nil {
		return nil, errors.Wrapf(err, "journal entry %s is corrupt", txID)
	}
	return entry, nil
}

// Update applies fn to the entry of txID and stores the result.
func (j *Journal) Update(txID string, fn func(entry *Entry)) error {
	entry, err := j.Get(txID)
	if err != nil {
		return err
	}
	fn(entry)
	entry.TxID = txID
	return j.Put(entry)
}

// List returns all entries, newest first.
func (j *Journal) List() ([]*Entry, error) {
	iterator := j.ldb.NewIterator(util.BytesPrefix(entryPrefix), nil)
	defer iterator.Release()

	var entries []*Entry
	for iterator.Next() {
		entry := &Entry{}
		err := json.Unmarshal(iterator.Value(), entry)
		if err != nil {
			return nil, errors.Wrapf(err, "journal entry %s is corrupt", iterator.Key()[len(entryPrefix):])
		}
		entries = append(entries, entry)
	}
	err := iterator.Error()
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate journal")
	}

	sort.SliceStable(entries, func(i, k int) bool {
		return entries[i].CreatedAt.After(entries[k].CreatedAt)
	})
	return entries, nil
}
