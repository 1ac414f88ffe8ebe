package session

import "testing"

func TestInMemoryStore_GetSetSession(t *testing.T) {
	store := NewInMemoryStore()

	_, ok := store.GetSession(ID("abc"))
	if ok {
		t.Error("expected not found for empty store")
	}

	sess := &Session{ID: ID("abc")}
	store.SetSession(sess)

	got, ok := store.GetSession(ID("abc"))
	if !ok || got != sess {
		t.Errorf("GetSession: ok=%v, got %p want %p", ok, got, sess)
	}
}

func TestInMemoryStore_DeleteSession(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSession(&Session{ID: ID("abc")})
	store.DeleteSession(ID("abc"))

	if _, ok := store.GetSession(ID("abc")); ok {
		t.Error("expected session removed")
	}
	if n := len(store.ListSessionIDs()); n != 0 {
		t.Errorf("expected 0 ids, got %d", n)
	}
}

func TestInMemoryStore_ListSessionIDs(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSession(&Session{ID: ID("a")})
	store.SetSession(&Session{ID: ID("b")})

	ids := store.ListSessionIDs()
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}
}
