package httpapi

import (
	"context"
	"testing"
	"time"
)

type sessionTestKey struct{}

func TestSessionStoreCreateGetDelete(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	token, sess := store.create()
	if token == "" || sess.id == "" {
		t.Fatalf("expected token and session id")
	}
	if sess.ws == nil || sess.ws.Store.Session() != sess.id {
		t.Fatalf("expected workspace bound to the session")
	}
	if got, ok := store.get(token); !ok || got != sess {
		t.Fatalf("expected session to be found")
	}
	store.delete(token)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected session to be deleted")
	}
	select {
	case <-sess.ctx.Done():
	default:
		t.Fatalf("expected session context to be canceled")
	}
}

func TestSessionStoreExpiration(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	now := time.Now()
	store.now = func() time.Time { return now }
	token, sess := store.create()
	_, kept := store.create()
	kept.expiresAt = now.Add(3 * time.Hour)

	now = now.Add(2 * time.Hour)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected expired session")
	}
	select {
	case <-sess.ctx.Done():
	default:
		t.Fatalf("expected session context to be canceled")
	}
	if removed := store.sweep(); removed != 0 || store.len() != 1 {
		t.Fatalf("unexpected sweep result removed=%d len=%d", removed, store.len())
	}
	now = now.Add(2 * time.Hour)
	if removed := store.sweep(); removed != 1 || store.len() != 0 {
		t.Fatalf("unexpected sweep result removed=%d len=%d", removed, store.len())
	}
}

func TestSessionStoreBaseContext(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	base := context.WithValue(context.Background(), sessionTestKey{}, "value")
	store.setBaseContext(base)
	_, sess := store.create()
	if got := sess.ctx.Value(sessionTestKey{}); got != "value" {
		t.Fatalf("expected base context value, got %v", got)
	}
}
