package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetFlash(rec, FlashWarning, "Please log in to continue.")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "catalog_flash", cookies[0].Name)

	// The next request carries the cookie back.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	rec2 := httptest.NewRecorder()
	flash, ok := PopFlash(rec2, req)
	require.True(t, ok)
	assert.Equal(t, FlashWarning, flash.Level)
	assert.Equal(t, "Please log in to continue.", flash.Message)

	// Popping clears the cookie.
	cleared := rec2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestPopFlashWithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	_, ok := PopFlash(rec, req)
	assert.False(t, ok)
}

func TestPopFlashGarbageCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "catalog_flash", Value: "not base64 json"})
	rec := httptest.NewRecorder()

	_, ok := PopFlash(rec, req)
	assert.False(t, ok)
}
