package demosite

import (
	"encoding/json"
	"net/http"
)

type loginPage struct {
	Error string
}

type inventoryItem struct {
	Product
	Index  int
	InCart bool
}

type inventoryPage struct {
	Items []inventoryItem
	Count int
}

// CartResponse is returned by every cart endpoint
type CartResponse struct {
	Count int      `json:"count"`
	Items []string `json:"items"`
}

type cartRequest struct {
	Slug string `json:"slug"`
}

// handleLoginPage serves the login form at the root
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data := loginPage{}
	if r.URL.Query().Get("denied") != "" {
		data.Error = ErrNoSession
	}
	s.render(w, http.StatusOK, "login.html", data)
}

// handleLogin checks the submitted credentials and starts a session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	username := r.PostForm.Get("user-name")
	password := r.PostForm.Get("password")

	if msg := s.checkCredentials(username, password); msg != "" {
		s.logger.Debug().Str("username", username).Str("reason", msg).Msg("Login rejected")
		s.render(w, http.StatusUnauthorized, "login.html", loginPage{Error: msg})
		return
	}

	id := s.sessions.create(username)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug().Str("username", username).Msg("Login accepted")
	http.Redirect(w, r, "/inventory.html", http.StatusSeeOther)
}

func (s *Server) checkCredentials(username, password string) string {
	switch {
	case username == "":
		return ErrUsername
	case password == "":
		return ErrPassword
	}
	user, ok := s.catalog.user(username)
	if !ok || user.Password != password {
		return ErrMismatch
	}
	if user.Locked {
		return ErrLocked
	}
	return ""
}

// handleLogout ends the session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if id, ok := s.sessionID(r); ok {
		s.sessions.delete(id)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleInventory lists the products for a logged-in session
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := s.sessionID(r)
	if !ok {
		http.Redirect(w, r, "/?denied=inventory", http.StatusSeeOther)
		return
	}

	cart, _ := s.sessions.cart(id)
	inCart := make(map[string]bool, len(cart))
	for _, slug := range cart {
		inCart[slug] = true
	}

	data := inventoryPage{Count: len(cart), Items: make([]inventoryItem, len(s.catalog.Products))}
	for i, p := range s.catalog.Products {
		data.Items[i] = inventoryItem{Product: p, Index: i, InCart: inCart[p.Slug]}
	}
	s.render(w, http.StatusOK, "inventory.html", data)
}

// handleCart handles GET /api/cart
func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := s.sessionID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	cart, _ := s.sessions.cart(id)
	respondJSON(w, http.StatusOK, CartResponse{Count: len(cart), Items: nonNil(cart)})
}

// handleCartAdd handles POST /api/cart/add
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	s.updateCart(w, r, s.sessions.add)
}

// handleCartRemove handles POST /api/cart/remove
func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	s.updateCart(w, r, s.sessions.remove)
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request, apply func(id, slug string) ([]string, bool)) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := s.sessionID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, ok := s.catalog.product(req.Slug); !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	cart, ok := apply(id, req.Slug)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	respondJSON(w, http.StatusOK, CartResponse{Count: len(cart), Items: nonNil(cart)})
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"products": len(s.catalog.Products),
		"sessions": s.sessions.count(),
	})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
