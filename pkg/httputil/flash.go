package httputil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// flashCookie carries one-shot notices across a redirect. The presentation
// layer reads and renders them; this package only sets and clears the cookie.
const flashCookie = "catalog_flash"

// Flash levels, mirroring the notice severities the presentation layer knows
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash represents a one-shot user notice
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SetFlash stores a flash message in the response cookie
func SetFlash(w http.ResponseWriter, level, message string) {
	payload, err := json.Marshal(Flash{Level: level, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
	})
}

// PopFlash reads the flash message from the request, if any, and clears it
func PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return Flash{}, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	payload, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return Flash{}, false
	}

	var flash Flash
	if err := json.Unmarshal(payload, &flash); err != nil {
		return Flash{}, false
	}
	return flash, true
}
