package notify

import (
	"context"
	"sync"
	"testing"

	"storefront/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePublisher struct {
	rooms []string
	got   []models.Notice
}

func (f *fakePublisher) PublishNotice(room string, n models.Notice) bool {
	f.rooms = append(f.rooms, room)
	f.got = append(f.got, n)
	return true
}

func TestRecorderKeepsOrder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	Error(ctx, &r, "first")
	Success(ctx, &r, "second")

	assert.Equal(t, []models.Notice{
		{Level: models.NoticeError, Message: "first"},
		{Level: models.NoticeSuccess, Message: "second"},
	}, r.Notices())
	assert.Equal(t, 1, r.Count(models.NoticeError))
	assert.Equal(t, 1, r.Count(models.NoticeSuccess))
}

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Success(context.Background(), &r, "ok")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Count(models.NoticeSuccess))
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	var a, b Recorder
	pub := &fakePublisher{}
	n := Multi(&a, nil, &b, Room(pub, "s1"))

	Error(context.Background(), n, "boom")

	assert.Len(t, a.Notices(), 1)
	assert.Len(t, b.Notices(), 1)
	assert.Equal(t, []string{"s1"}, pub.rooms)
	assert.Equal(t, "boom", pub.got[0].Message)
}

func TestLogLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLog(zap.New(core))

	Success(context.Background(), l, "placed")
	Error(context.Background(), l, "failed")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, zap.WarnLevel, entries[1].Level)
		assert.Equal(t, "failed", entries[1].ContextMap()["message"])
	}
}

func TestFunc(t *testing.T) {
	var got models.Notice
	Success(context.Background(), Func(func(_ context.Context, n models.Notice) { got = n }), "hi")
	assert.Equal(t, "hi", got.Message)
}
