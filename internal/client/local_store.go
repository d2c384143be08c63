package client

import (
	"errors"
	"reflect"
	"time"

	"shuttlebook/internal/domain/models"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

var draftKey = []byte("draft/current")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("client: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("client: CBOR decoder initialization failed: " + err.Error())
	}
}

// Snapshot is the on-device copy of an in-progress form. FormData is the
// JSON form as sent to the server.
type Snapshot struct {
	Type     models.BookingType `cbor:"type"`
	FormData []byte             `cbor:"form"`
	Step     int                `cbor:"step"`
	SavedAt  time.Time          `cbor:"saved_at"`
}

// LocalStore keeps the device's single draft snapshot in badger.
type LocalStore struct {
	db *badger.DB
}

// OpenLocalStore opens (or creates) the store at dir. An empty dir keeps
// everything in memory.
func OpenLocalStore(dir string) (*LocalStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) Put(snap Snapshot) error {
	data, err := encMode.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(draftKey, data)
	})
}

// Get returns the stored snapshot; ok is false when there is none.
func (s *LocalStore) Get() (Snapshot, bool, error) {
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decMode.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *LocalStore) Delete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(draftKey)
	})
}
