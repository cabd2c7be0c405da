// Package frontend serves the static storefront and its runtime config.
package frontend

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sit722-devops/week07/internal/httpx"
)

//go:embed static
var staticFiles embed.FS

type Config struct {
	ProductServiceURL string
	OrderServiceURL   string
}

// NewRouter builds the frontend router: embedded assets at /, a health endpoint,
// and /config.js exposing the backend URLs the deployment injects.
func NewRouter(cfg Config) (*chi.Mux, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		// The page must always see the current environment, never a cached copy.
		w.Header().Set("Cache-Control", "no-store")
		fmt.Fprintf(w, "window.__config = {productServiceUrl: %q, orderServiceUrl: %q};\n",
			cfg.ProductServiceURL, cfg.OrderServiceURL)
	})

	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	return r, nil
}
