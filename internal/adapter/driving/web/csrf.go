package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenBytes = 32
)

// writeCookie sets a root-path HttpOnly cookie. It is marked Secure when the
// request arrived over TLS, directly or through a terminating proxy.
// maxAge < 0 deletes the cookie.
func writeCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: sameSite,
	})
}

// csrfToken returns the double-submit token for this browser, issuing the
// cookie on first contact. Every rendered form carries it as a hidden field.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := newCSRFToken()
	writeCookie(w, r, csrfCookieName, token, 0, http.SameSiteStrictMode)
	return token
}

// validateCSRF reports whether a mutating request echoes the cookie token in
// the form field or the X-CSRF-Token header.
func validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	submitted := r.Header.Get(csrfHeader)
	if submitted == "" {
		submitted = r.PostFormValue(csrfFormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(cookie.Value)) == 1
}

func newCSRFToken() string {
	b := make([]byte, csrfTokenBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
