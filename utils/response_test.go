package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Token string `json:"token"`
	}
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"token":"abc"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "abc", v.Token)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"token":`))
	assert.ErrorIs(t, DecodeJSON(r, &v), ErrBadBody)
}

func TestRespondWithNotices(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithNotices(rr, http.StatusUnauthorized, "Please log in", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body struct {
		Error   string          `json:"error"`
		Notices []models.Notice `json:"notices"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Please log in", body.Error)
	assert.NotNil(t, body.Notices)
	assert.Empty(t, body.Notices)
}

func TestRespondWithFile(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithFile(rr, "text/csv", "orders.csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=orders.csv", rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rr.Body.String())
}
