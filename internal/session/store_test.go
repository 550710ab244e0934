package session

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *MemStore {
	t.Helper()
	store, err := NewMemStore()
	if err != nil {
		t.Fatalf("NewMemStore() error = %v", err)
	}
	return store
}

func TestMemStore_PutGet(t *testing.T) {
	store := newTestStore(t)

	rec := Record{
		ID:           "session-1",
		ClientID:     "C100",
		APIKey:       "key-123",
		JWTToken:     "jwt-1",
		FeedToken:    "feed-1",
		RefreshToken: "refresh-1",
		CreatedAt:    time.Now(),
	}
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := store.Get("C100")
	if !ok {
		t.Fatal("Get() after Put() returned not found")
	}
	if got != rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestMemStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Get("nobody"); ok {
		t.Error("Get() on empty store should return not found")
	}
}

func TestMemStore_PutOverwrites(t *testing.T) {
	store := newTestStore(t)

	first := Record{ClientID: "C100", JWTToken: "jwt-old"}
	second := Record{ClientID: "C100", JWTToken: "jwt-new"}
	if err := store.Put(first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := store.Get("C100")
	if !ok {
		t.Fatal("Get() returned not found")
	}
	if got.JWTToken != "jwt-new" {
		t.Errorf("JWTToken = %q, want jwt-new (last writer wins)", got.JWTToken)
	}
}

func TestMemStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put(Record{ClientID: "C100", JWTToken: "jwt"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Delete("C100"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.Get("C100"); ok {
		t.Error("Get() after Delete() should return not found")
	}

	// Deleting an absent client is a no-op.
	if err := store.Delete("C100"); err != nil {
		t.Errorf("Delete() on absent client: %v", err)
	}
}

func TestMemStore_FillsRecordID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put(Record{ClientID: "C100"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _ := store.Get("C100")
	if got.ID == "" {
		t.Error("Put() should assign a record ID when missing")
	}
}

func TestMemStore_ConcurrentWrites(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Put(Record{ClientID: "C100", JWTToken: "jwt"})
			store.Get("C100")
		}()
	}
	wg.Wait()

	if _, ok := store.Get("C100"); !ok {
		t.Error("record missing after concurrent writes")
	}
}
