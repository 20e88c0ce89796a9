package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func ok(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func hit(h httprouter.Handle, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h(rr, req, nil)
	return rr.Code
}

func TestLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Limit(ok)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1000"))
	// Same host, different port shares the bucket.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:2000"))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:3000"))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1000"))
}

func TestCleanupDropsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getLimiter("a")
	rl.getLimiter("b")
	rl.visitors["a"].lastSeen = time.Now().Add(-time.Hour)

	rl.Cleanup(IdleTTL)
	assert.Equal(t, 1, rl.size())
}
