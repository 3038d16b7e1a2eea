package auth

import (
	"testing"
	"time"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(time.Hour)

	sess := store.Create("user-1")
	if sess.Token == "" {
		t.Fatal("Create() returned empty token")
	}
	if sess.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", sess.UserID, "user-1")
	}

	got, ok := store.Get(sess.Token)
	if !ok {
		t.Fatal("Get() did not find freshly created session")
	}
	if got.UserID != "user-1" {
		t.Errorf("Get().UserID = %q, want %q", got.UserID, "user-1")
	}
}

func TestStore_GetUnknownToken(t *testing.T) {
	store := NewStore(time.Hour)

	if _, ok := store.Get("nope"); ok {
		t.Error("Get() found a session for an unknown token")
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create("user-1")

	store.Delete(sess.Token)

	if _, ok := store.Get(sess.Token); ok {
		t.Error("Get() found a deleted session")
	}
}

func TestStore_Expiry(t *testing.T) {
	// Negative TTL makes every session already expired
	store := NewStore(-time.Minute)
	sess := store.Create("user-1")

	if _, ok := store.Get(sess.Token); ok {
		t.Error("Get() returned an expired session")
	}
}

func TestStore_TokensAreUnique(t *testing.T) {
	store := NewStore(time.Hour)

	a := store.Create("user-1")
	b := store.Create("user-1")
	if a.Token == b.Token {
		t.Error("two sessions share a token")
	}
}
