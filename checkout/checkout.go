// Package checkout turns a cart into backend orders, one request per line,
// and reconciles the cart and the user's notices with the outcome.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/api"
	"storefront/cart"
	"storefront/models"
	"storefront/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// User-facing notice texts.
const (
	MsgLoginRequired = "Please log in to place an order"
	MsgPlaced        = "Order placed successfully"
	MsgFailed        = "Order failed. Please try again."
	MsgInProgress    = "Your order is already being placed"
	MsgEmptyCart     = "Your cart is empty"
)

const (
	LockTTL    = 30 * time.Second
	lockPrefix = "checkout_lock:"
)

var (
	// ErrUnauthenticated is returned when there is no token; nothing is sent.
	ErrUnauthenticated = api.ErrUnauthenticated
	// ErrCheckoutInProgress is returned while another checkout holds the
	// session's lock.
	ErrCheckoutInProgress = errors.New("checkout: already in progress")
	ErrEmptyCart          = errors.New("checkout: cart is empty")
)

// OrderPlacer creates one order for one product.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, token, productID, idempotencyKey string) error
}

// Locker is a short-lived exclusive lock, see rdx.Locker.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Policy decides what happens to the cart once every request has finished.
type Policy int

const (
	// ClearAlways removes every submitted line whatever the outcome. Lines
	// added while the requests were in flight stay in the cart.
	ClearAlways Policy = iota
	// ClearSucceeded removes only the lines whose order was placed.
	ClearSucceeded
)

func (p Policy) String() string {
	if p == ClearSucceeded {
		return "succeeded"
	}
	return "always"
}

// ParsePolicy maps a CLEAR_POLICY value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "always":
		return ClearAlways, nil
	case "succeeded":
		return ClearSucceeded, nil
	}
	return ClearAlways, fmt.Errorf("unknown clear policy %q", s)
}

// LineResult is the outcome of one line's order request.
type LineResult struct {
	Identity  string `json:"identity"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Placed    bool   `json:"placed"`
	Error     string `json:"error,omitempty"`
}

// Result summarises one checkout.
type Result struct {
	Lines   []LineResult `json:"lines"`
	Placed  int          `json:"placed"`
	Failed  int          `json:"failed"`
	Pending []string     `json:"pending"` // identities left in the cart
	Cleared bool         `json:"cleared"`
}

// Submitter runs checkouts. It is safe for concurrent use.
type Submitter struct {
	placer      OrderPlacer
	notifier    notify.Notifier
	policy      Policy
	limiter     *rate.Limiter
	concurrency int
	locker      Locker
	lockTTL     time.Duration
	newKey      func() string
	log         *zap.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

func WithPolicy(p Policy) Option { return func(s *Submitter) { s.policy = p } }

// WithLimiter paces outbound order requests. Nil disables pacing.
func WithLimiter(l *rate.Limiter) Option { return func(s *Submitter) { s.limiter = l } }

// WithConcurrency caps in-flight order requests per checkout. Zero or less
// means unbounded.
func WithConcurrency(n int) Option { return func(s *Submitter) { s.concurrency = n } }

// WithLocker guards each session against overlapping checkouts.
func WithLocker(l Locker) Option { return func(s *Submitter) { s.locker = l } }

// WithNotifier sets the notifier used when a checkout brings none.
func WithNotifier(n notify.Notifier) Option { return func(s *Submitter) { s.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(s *Submitter) { s.log = l } }

// New returns a Submitter placing orders through placer.
func New(placer OrderPlacer, opts ...Option) *Submitter {
	s := &Submitter{
		placer:  placer,
		policy:  ClearAlways,
		lockTTL: LockTTL,
		newKey:  uuid.NewString,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLog(s.log)
	}
	return s
}

// Checkout is one submission request.
type Checkout struct {
	SessionID string // enables the per-session lock when set
	Token     string
	Cart      *cart.Store
	Notifier  notify.Notifier
}

// Submit places one order per line of store using token.
func (s *Submitter) Submit(ctx context.Context, token string, store *cart.Store) (*Result, error) {
	return s.Run(ctx, Checkout{Token: token, Cart: store})
}

// Run places one order per cart line. Every request is independent: each
// outcome yields exactly one notice and failures do not stop the others.
// The cart is reconciled once, after all requests have finished.
func (s *Submitter) Run(ctx context.Context, c Checkout) (*Result, error) {
	n := c.Notifier
	if n == nil {
		n = s.notifier
	}
	log := s.log.With(zap.String("session", c.SessionID))

	if c.Token == "" {
		notify.Error(ctx, n, MsgLoginRequired)
		return nil, ErrUnauthenticated
	}

	if c.SessionID != "" && s.locker != nil {
		key := lockPrefix + c.SessionID
		acquired, err := s.locker.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			notify.Error(ctx, n, api.GenericMessage)
			return nil, fmt.Errorf("checkout: lock: %w", err)
		}
		if !acquired {
			notify.Error(ctx, n, MsgInProgress)
			return nil, ErrCheckoutInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("checkout lock release failed", zap.Error(err))
			}
		}()
	}

	snap := c.Cart.Snapshot()
	if len(snap.Lines) == 0 {
		notify.Error(ctx, n, MsgEmptyCart)
		return nil, ErrEmptyCart
	}

	results := make([]LineResult, len(snap.Lines))
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, line := range snap.Lines {
		i, line := i, line
		results[i] = LineResult{Identity: line.Identity, ProductID: line.ProductID, Name: line.Name}
		g.Go(func() error {
			err := s.place(ctx, c.Token, line)
			if err != nil {
				msg := api.MessageOf(err, MsgFailed)
				results[i].Error = msg
				log.Warn("order failed",
					zap.String("identity", line.Identity),
					zap.String("product", line.ProductID),
					zap.Error(err))
				notify.Error(ctx, n, msg)
				return nil
			}
			results[i].Placed = true
			notify.Success(ctx, n, MsgPlaced)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Lines: results, Pending: []string{}}
	placed := make([]string, 0, len(results))
	submitted := make([]string, 0, len(results))
	for _, r := range results {
		submitted = append(submitted, r.Identity)
		if r.Placed {
			res.Placed++
			placed = append(placed, r.Identity)
		} else {
			res.Failed++
		}
	}

	switch s.policy {
	case ClearSucceeded:
		c.Cart.RemoveMany(placed)
		for _, r := range results {
			if !r.Placed {
				res.Pending = append(res.Pending, r.Identity)
			}
		}
		res.Cleared = len(res.Pending) == 0
	default:
		c.Cart.RemoveMany(submitted)
		res.Cleared = true
	}

	log.Info("checkout finished",
		zap.Int("lines", len(results)),
		zap.Int("placed", res.Placed),
		zap.Int("failed", res.Failed),
		zap.Stringer("policy", s.policy))
	return res, nil
}

func (s *Submitter) place(ctx context.Context, token string, line models.CartLine) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return s.placer.CreateOrder(ctx, token, line.ProductID, s.newKey())
}
