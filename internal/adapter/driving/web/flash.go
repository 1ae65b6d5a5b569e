package web

import (
	"net/http"
	"net/url"
	"strings"

	vm "github.com/ericfisherdev/antigravity/internal/adapter/driving/web/viewmodel"
)

const flashCookieName = "flash"

// Notices shown after a successful redirect.
const (
	flashKeyAdded     = "Key added"
	flashKeyRemoved   = "Key removed"
	flashKeyActivated = "Active key switched"
	flashJobQueued    = "Generation started"
	flashJobCancelled = "Generation cancelled"
	flashJobCompleted = "Video synthesized successfully!"
)

// setFlash stores a one-shot notice read by the next page render.
func setFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	writeCookie(w, r, flashCookieName, url.QueryEscape(kind+":"+message), 0, http.SameSiteLaxMode)
}

// popFlash returns the pending notice, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *vm.FlashViewModel {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	writeCookie(w, r, flashCookieName, "", -1, http.SameSiteLaxMode)

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok || message == "" {
		return nil
	}
	if kind != "success" && kind != "error" {
		kind = "success"
	}
	return &vm.FlashViewModel{Kind: kind, Message: message}
}
