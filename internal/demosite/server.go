// Package demosite serves an offline replica of the storefront: a login form,
// the inventory page and the cart endpoint its add-to-cart buttons call.
package demosite

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

//go:embed assets/*.html
var assets embed.FS

const sessionCookie = "session-id"

// Error messages shown on the login form
const (
	ErrMismatch  = "Epic sadface: Username and password do not match any user in this service"
	ErrLocked    = "Epic sadface: Sorry, this user has been locked out."
	ErrUsername  = "Epic sadface: Username is required"
	ErrPassword  = "Epic sadface: Password is required"
	ErrNoSession = "Epic sadface: You can only access '/inventory.html' when you are logged in."
)

// Server manages the replica's routes and in-memory sessions
type Server struct {
	catalog   *Catalog
	logger    arbor.ILogger
	templates *template.Template
	sessions  *sessionStore
	server    *http.Server
}

// New creates a server for catalog
func New(catalog *Catalog, logger arbor.ILogger) (*Server, error) {
	templates, err := template.ParseFS(assets, "assets/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	s := &Server{
		catalog:   catalog,
		logger:    logger,
		templates: templates,
		sessions:  newSessionStore(),
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("/", s.handleLoginPage)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/inventory.html", s.handleInventory)

	// Cart endpoints
	mux.HandleFunc("/api/cart", s.handleCart)
	mux.HandleFunc("/api/cart/add", s.handleCartAdd)
	mux.HandleFunc("/api/cart/remove", s.handleCartRemove)

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return s.withMiddleware(mux)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().
		Str("address", ln.Addr().String()).
		Int("products", len(s.catalog.Products)).
		Msg("Demo storefront starting")

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down demo storefront...")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("Demo storefront stopped")
	return nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().
			Err(err).
			Str("template", name).
			Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// sessionID returns the caller's session id when it refers to a live session
func (s *Server) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	if !s.sessions.exists(cookie.Value) {
		return "", false
	}
	return cookie.Value, true
}
