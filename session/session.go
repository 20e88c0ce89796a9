// Package session keeps the per-visitor state: a cart and a small key-value
// store holding the auth token and, optionally, the saved cart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storefront/cart"
	"storefront/models"
	"storefront/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CookieName = "sid"
	HeaderName = "X-Session-ID"

	saveTimeout = 5 * time.Second
)

// NewID mints a session id.
func NewID() string {
	return uuid.NewString()
}

// IDFromRequest returns the session id carried by r, cookie first.
func IDFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(HeaderName)
}

// Session is one visitor.
type Session struct {
	ID   string
	Cart *cart.Store

	kv       storage.Storage
	mu       sync.Mutex
	lastSeen time.Time
}

// Token returns the stored auth token, or "" when logged out.
func (s *Session) Token(ctx context.Context) (string, error) {
	tok, err := s.kv.Get(ctx, storage.TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SetToken stores the auth token (login).
func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, storage.TokenKey, token)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Observer is told about every cart change of every session.
type Observer func(sessionID string, snap models.CartSnapshot)

// Registry owns all live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backing     storage.Storage
	persistCart bool
	cartOpts    []cart.Option
	observers   []Observer
	log         *zap.Logger
}

type Option func(*Registry)

// WithCartOptions configures every new cart.
func WithCartOptions(opts ...cart.Option) Option {
	return func(r *Registry) { r.cartOpts = append(r.cartOpts, opts...) }
}

// WithPersistence saves each cart to storage after every change and restores
// it when the session is next loaded.
func WithPersistence(on bool) Option {
	return func(r *Registry) { r.persistCart = on }
}

func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New returns a registry keeping session data in backing.
func New(backing storage.Storage, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		backing:  backing,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func keyPrefix(id string) string {
	return "session:" + id + ":"
}

// Get returns the session id, creating it on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("session: empty id")
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s, nil
	}

	s := &Session{
		ID:       id,
		Cart:     cart.New(r.cartOpts...),
		kv:       storage.Prefixed(r.backing, keyPrefix(id)),
		lastSeen: now,
	}
	if r.persistCart {
		if err := r.restore(ctx, s); err != nil {
			return nil, err
		}
	}
	s.Cart.OnChange(func(snap models.CartSnapshot) { r.changed(s, snap) })
	r.sessions[id] = s
	return s, nil
}

// Lookup returns a live session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) restore(ctx context.Context, s *Session) error {
	raw, err := s.kv.Get(ctx, storage.CartKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: load cart: %w", err)
	}
	var lines []models.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		r.log.Warn("discarding unreadable saved cart", zap.String("session", s.ID), zap.Error(err))
		return nil
	}
	s.Cart.Restore(lines)
	return nil
}

func (r *Registry) changed(s *Session, snap models.CartSnapshot) {
	if r.persistCart {
		r.save(s, snap)
	}
	for _, o := range r.observers {
		o(s.ID, snap)
	}
}

func (r *Registry) save(s *Session, snap models.CartSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	var err error
	if len(snap.Lines) == 0 {
		err = s.kv.Delete(ctx, storage.CartKey)
	} else {
		var raw []byte
		raw, err = json.Marshal(snap.Lines)
		if err == nil {
			err = s.kv.Set(ctx, storage.CartKey, string(raw))
		}
	}
	if err != nil {
		r.log.Warn("saving cart failed", zap.String("session", s.ID), zap.Uint64("version", snap.Version), zap.Error(err))
	}
}

// End logs the session out: the cart is cleared, the token and saved cart
// are deleted and the session is forgotten.
func (r *Registry) End(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	kv := storage.Prefixed(r.backing, keyPrefix(id))
	if ok {
		s.Cart.Clear()
		kv = s.kv
	}
	if err := kv.Delete(ctx, storage.TokenKey); err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	if err := kv.Delete(ctx, storage.CartKey); err != nil {
		return fmt.Errorf("session: delete cart: %w", err)
	}
	return nil
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep forgets sessions idle for longer than idle. Stored data stays, so a
// returning visitor gets their token and saved cart back.
func (r *Registry) Sweep(idle time.Duration) int {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.idleSince(now) > idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Janitor runs Sweep every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.log.Debug("swept idle sessions", zap.Int("count", n))
			}
		}
	}
}
