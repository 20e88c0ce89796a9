// Package cart holds the in-memory shopping cart and its state transitions.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"storefront/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNoIdentity    = errors.New("cart: product has no identity")
	ErrNoProductID   = errors.New("cart: product has no productId")
	ErrNegativePrice = errors.New("cart: unit price must not be negative")
)

// KeyFunc derives the de-duplication identity of a product.
type KeyFunc func(models.Product) string

// ByProductID keys lines by backend product id.
func ByProductID(p models.Product) string {
	return p.ID
}

// ByName keys lines by display name.
func ByName(p models.Product) string {
	return p.Name
}

// KeyFuncFor maps a CART_KEY setting to a KeyFunc.
func KeyFuncFor(name string) (KeyFunc, error) {
	switch name {
	case "", "product", "productId":
		return ByProductID, nil
	case "name":
		return ByName, nil
	default:
		return nil, fmt.Errorf("unknown cart key %q", name)
	}
}

// Store is a session's cart. Every mutation is applied atomically and in
// dispatch order; observers see snapshots in the same order.
type Store struct {
	mu      sync.Mutex
	lines   []models.CartLine
	version uint64
	key     KeyFunc

	// notifyMu is taken before mu is released so observers run in
	// mutation order.
	notifyMu  sync.Mutex
	observers []func(models.CartSnapshot)
}

// Option configures a Store.
type Option func(*Store)

// WithKeyFunc overrides the identity function.
func WithKeyFunc(k KeyFunc) Option {
	return func(s *Store) {
		if k != nil {
			s.key = k
		}
	}
}

// New returns an empty cart.
func New(opts ...Option) *Store {
	s := &Store{
		lines: []models.CartLine{},
		key:   ByProductID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to receive a snapshot after every mutation that
// changed the cart. fn must not mutate the store.
func (s *Store) OnChange(fn func(models.CartSnapshot)) {
	s.notifyMu.Lock()
	s.observers = append(s.observers, fn)
	s.notifyMu.Unlock()
}

// IdentityOf returns the identity p would be stored under.
func (s *Store) IdentityOf(p models.Product) string {
	return s.key(p)
}

// Dispatch applies a and returns the resulting snapshot.
func (s *Store) Dispatch(a Action) models.CartSnapshot {
	s.mu.Lock()
	next, changed := reduce(s.lines, a)
	if changed {
		s.lines = next
		s.version++
	}
	snap := models.NewCartSnapshot(s.lines, s.version)
	if !changed {
		s.mu.Unlock()
		return snap
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, fn := range s.observers {
		fn(snap)
	}
	s.notifyMu.Unlock()
	return snap
}

// Add merges p into the cart: +1 on an existing line, else a new line with
// quantity 1. p must carry a product id so the line can be ordered.
func (s *Store) Add(p models.Product) (models.CartSnapshot, error) {
	if p.ID == "" {
		return models.CartSnapshot{}, ErrNoProductID
	}
	id := s.key(p)
	if id == "" {
		return models.CartSnapshot{}, ErrNoIdentity
	}
	if p.Price.IsNegative() {
		return models.CartSnapshot{}, ErrNegativePrice
	}
	return s.Dispatch(Action{Kind: ActionAdd, Line: models.CartLine{
		Identity:  id,
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		Brand:     p.Brand,
		UnitPrice: p.Price,
	}}), nil
}

// Increment adds one to the line with identity. Unknown identities are a no-op.
func (s *Store) Increment(identity string) models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionIncrement, Identity: identity})
}

// Decrement removes one from the line with identity, dropping the line when
// it reaches zero. Unknown identities are a no-op.
func (s *Store) Decrement(identity string) models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionDecrement, Identity: identity})
}

// Remove drops the line with identity regardless of quantity.
func (s *Store) Remove(identity string) models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionRemove, Identity: identity})
}

// RemoveMany drops every listed identity in one transition.
func (s *Store) RemoveMany(identities []string) models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionRemoveMany, Identities: identities})
}

// Clear empties the cart.
func (s *Store) Clear() models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionClear})
}

// Restore replaces the cart with lines, typically loaded from storage.
func (s *Store) Restore(lines []models.CartLine) models.CartSnapshot {
	return s.Dispatch(Action{Kind: ActionRestore, Lines: lines})
}

// Snapshot returns a copy of the current lines with derived values.
func (s *Store) Snapshot() models.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.NewCartSnapshot(s.lines, s.version)
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []models.CartLine {
	return s.Snapshot().Lines
}

// Line returns the line with identity, if present.
func (s *Store) Line(identity string) (models.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.lines, identity); i >= 0 {
		return s.lines[i], true
	}
	return models.CartLine{}, false
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Count is Σ quantity.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Total is Σ quantity × unitPrice.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
