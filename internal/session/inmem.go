package session

import (
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ClientID"},
				},
			},
		},
	},
}

// MemStore is the in-memory session store built on hashicorp/go-memdb.
// Transactions give atomic last-writer-wins updates per client.
type MemStore struct {
	db *memdb.MemDB
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates a new empty in-memory session store.
func NewMemStore() (*MemStore, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &MemStore{db: db}, nil
}

// Put stores a record keyed by ClientID, overwriting any existing one.
// A missing record ID is filled in.
func (s *MemStore) Put(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", &rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Get returns the record for a client id.
func (s *MemStore) Get(clientID string) (Record, bool) {
	txn := s.db.Txn(false)
	obj, err := txn.First("sessions", "id", clientID)
	if err != nil || obj == nil {
		return Record{}, false
	}
	return *obj.(*Record), true
}

// Delete removes the record for a client id, if present.
func (s *MemStore) Delete(clientID string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", clientID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
