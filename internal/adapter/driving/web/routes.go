package web

import (
	"io/fs"
	"net/http"
)

// Page paths shared by handlers, routes and the sidebar.
const (
	pathKeys   = "/app/keys"
	pathCreate = "/app/create"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Web routes serve HTML at / and /app/* paths.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.Landing)
	mux.HandleFunc("GET /app/{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pathKeys, http.StatusSeeOther)
	})

	mux.HandleFunc("GET "+pathKeys, h.KeysPage)
	mux.HandleFunc("POST "+pathKeys, h.AddKey)
	mux.HandleFunc("POST /app/keys/{id}/activate", h.ActivateKey)
	mux.HandleFunc("POST /app/keys/{id}/delete", h.RemoveKey)

	mux.HandleFunc("GET "+pathCreate, h.CreatePage)
	mux.HandleFunc("POST "+pathCreate, h.SubmitJob)
	mux.HandleFunc("GET /app/jobs/{id}", h.JobPage)
	mux.HandleFunc("POST /app/jobs/{id}/cancel", h.CancelJob)
}
