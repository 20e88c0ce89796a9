// Package notify delivers transient user notices (toasts).
package notify

import (
	"context"
	"sync"

	"storefront/models"

	"go.uber.org/zap"
)

// Notifier shows one notice to the user. Implementations must not block for
// long and must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n models.Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n models.Notice)

func (f Func) Notify(ctx context.Context, n models.Notice) { f(ctx, n) }

// Success sends a success notice with msg.
func Success(ctx context.Context, to Notifier, msg string) {
	to.Notify(ctx, models.Notice{Level: models.NoticeSuccess, Message: msg})
}

// Error sends an error notice with msg.
func Error(ctx context.Context, to Notifier, msg string) {
	to.Notify(ctx, models.Notice{Level: models.NoticeError, Message: msg})
}

// Log writes notices to a zap logger.
type Log struct {
	log *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{log: logger}
}

func (l *Log) Notify(_ context.Context, n models.Notice) {
	if n.Level == models.NoticeError {
		l.log.Warn("notice", zap.String("level", n.Level), zap.String("message", n.Message))
		return
	}
	l.log.Info("notice", zap.String("level", n.Level), zap.String("message", n.Message))
}

// Recorder keeps every notice it receives, in arrival order.
type Recorder struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *Recorder) Notify(_ context.Context, n models.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many notices of level were recorded.
func (r *Recorder) Count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == level {
			n++
		}
	}
	return n
}

type multi []Notifier

// Multi delivers every notice to each of ns in order. Nil entries are skipped.
func Multi(ns ...Notifier) Notifier {
	out := make(multi, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, n models.Notice) {
	for _, to := range m {
		to.Notify(ctx, n)
	}
}

// Publisher pushes a notice to everyone watching room.
type Publisher interface {
	PublishNotice(room string, n models.Notice) bool
}

type roomNotifier struct {
	pub  Publisher
	room string
}

// Room sends notices as toast frames to one session's websocket room.
func Room(pub Publisher, room string) Notifier {
	return roomNotifier{pub: pub, room: room}
}

func (r roomNotifier) Notify(_ context.Context, n models.Notice) {
	r.pub.PublishNotice(r.room, n)
}
