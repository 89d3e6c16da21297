package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"pkt.systems/tabforge/core"
	"pkt.systems/tabforge/internal/logx"
	"pkt.systems/tabforge/schema"
)

// WorkspaceFactory builds the workspace owned by a new browser session.
type WorkspaceFactory func(sessionID schema.SessionID) *core.Workspace

type session struct {
	id        schema.SessionID
	expiresAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *core.Workspace
}

type sessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	baseCtx context.Context
	items   map[string]*session
	factory WorkspaceFactory
	now     func() time.Time
}

func newSessionStore(ttl time.Duration, factory WorkspaceFactory) *sessionStore {
	if factory == nil {
		factory = func(id schema.SessionID) *core.Workspace {
			return core.NewWorkspace(core.StoreDeps{Session: id})
		}
	}
	return &sessionStore{
		ttl:     ttl,
		baseCtx: context.TODO(),
		items:   make(map[string]*session),
		factory: factory,
		now:     time.Now,
	}
}

func (s *sessionStore) create() (string, *session) {
	token := randomToken(32)
	id := schema.SessionID(randomToken(12))
	ctx, cancel := context.WithCancel(s.baseContext())
	entry := &session{
		id:        id,
		expiresAt: s.now().Add(s.ttl),
		ctx:       ctx,
		cancel:    cancel,
		ws:        s.factory(id),
	}
	s.mu.Lock()
	s.items[token] = entry
	count := len(s.items)
	s.mu.Unlock()
	logx.WithSession(context.Background(), id).Info("session created", "expires", entry.expiresAt.Format(time.RFC3339), "sessions", count)
	return token, entry
}

func (s *sessionStore) get(token string) (*session, bool) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.items, token)
		s.mu.Unlock()
		entry.cancel()
		logx.WithSession(context.Background(), entry.id).Info("session expired")
		return nil, false
	}
	s.mu.Unlock()
	return entry, true
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	s.mu.Unlock()
	if ok {
		entry.cancel()
		logx.WithSession(context.Background(), entry.id).Info("session deleted")
	}
}

// sweep drops expired sessions and returns how many were removed.
func (s *sessionStore) sweep() int {
	now := s.now()
	var expired []*session
	s.mu.Lock()
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, token)
			expired = append(expired, entry)
		}
	}
	s.mu.Unlock()
	for _, entry := range expired {
		entry.cancel()
	}
	return len(expired)
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *sessionStore) setBaseContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	logx.Ctx(context.Background()).Debug("session base context set")
}

func (s *sessionStore) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.TODO()
}

func randomToken(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func (s *sessionStore) janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				logx.Ctx(ctx).Debug("session sweep", "expired", n, "sessions", s.len())
			}
		}
	}
}
