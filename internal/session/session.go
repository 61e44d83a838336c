// Package session holds the terminal's backend session. The Manager is the
// only owner of tokens and the CSRF token; flows receive a Context value.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Tokens are issued by the backend on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Phone   string `json:"phone"`
}

// Context is what a backend call needs. It is passed explicitly, never read
// from globals.
type Context struct {
	AccessToken string
	CSRFToken   string
}

// Backend is the subset of the API the session owner needs.
type Backend interface {
	Login(ctx context.Context, phone, password string) (Tokens, error)
	CSRFToken(ctx context.Context) (string, error)
}

// Store persists tokens between restarts.
type Store interface {
	Load(ctx context.Context) (Tokens, bool, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

type Manager struct {
	be    Backend
	store Store
	log   *slog.Logger

	mu     sync.RWMutex
	tokens *Tokens
	csrf   string
	sf     singleflight.Group
}

func NewManager(be Backend, store Store, log *slog.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{be: be, store: store, log: log}
}

// Restore loads persisted tokens, if any.
func (m *Manager) Restore(ctx context.Context) error {
	t, ok, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}
	m.mu.Lock()
	m.tokens = &t
	m.mu.Unlock()
	m.log.Info("session restored", "phone", t.Phone)
	return nil
}

// Login replaces the current session. The password is not kept.
func (m *Manager) Login(ctx context.Context, phone, password string) error {
	t, err := m.be.Login(ctx, phone, password)
	if err != nil {
		return err
	}
	if t.Phone == "" {
		t.Phone = phone
	}
	if err := m.store.Save(ctx, t); err != nil {
		m.log.Warn("session not persisted", "error", err)
	}

	m.mu.Lock()
	m.tokens = &t
	m.csrf = ""
	m.mu.Unlock()
	return nil
}

// Current returns the session context, fetching the CSRF token on first use.
func (m *Manager) Current(ctx context.Context) (Context, error) {
	m.mu.RLock()
	tokens, csrf := m.tokens, m.csrf
	m.mu.RUnlock()

	if tokens == nil {
		return Context{}, ErrNotLoggedIn
	}
	if csrf == "" {
		var err error
		if csrf, err = m.fetchCSRF(ctx); err != nil {
			return Context{}, err
		}
	}
	return Context{AccessToken: tokens.Access, CSRFToken: csrf}, nil
}

// RefreshCSRF drops the cached CSRF token and fetches a new one.
func (m *Manager) RefreshCSRF(ctx context.Context) error {
	m.mu.Lock()
	m.csrf = ""
	m.mu.Unlock()
	_, err := m.fetchCSRF(ctx)
	return err
}

func (m *Manager) fetchCSRF(ctx context.Context) (string, error) {
	v, err, _ := m.sf.Do("csrf", func() (any, error) {
		m.mu.RLock()
		cached := m.csrf
		m.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		tok, err := m.be.CSRFToken(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch csrf: %w", err)
		}
		m.mu.Lock()
		if m.tokens != nil {
			m.csrf = tok
		}
		m.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Phone is the phone number of the signed-in account.
func (m *Manager) Phone() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tokens == nil {
		return ""
	}
	return m.tokens.Phone
}

// Logout invalidates everything the manager holds.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.tokens = nil
	m.csrf = ""
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// MemoryStore keeps tokens in process memory only.
type MemoryStore struct {
	mu sync.Mutex
	t  *Tokens
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(context.Context) (Tokens, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t == nil {
		return Tokens{}, false, nil
	}
	return *s.t, true, nil
}

func (s *MemoryStore) Save(_ context.Context, t Tokens) error {
	s.mu.Lock()
	s.t = &t
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.t = nil
	s.mu.Unlock()
	return nil
}
