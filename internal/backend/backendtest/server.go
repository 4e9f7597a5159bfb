// Package backendtest runs an in-process fake of the chat and account
// services for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"roomsync/internal/models"
)

const (
	DefaultToken = "tok-123"
	ProofTTL     = 60 * time.Second
)

// Recorded is one request seen by the fake.
type Recorded struct {
	Method       string
	Path         string
	Token        string
	Proof        string
	RoomPassword string
}

type proofGrant struct {
	room    string
	expires time.Time
}

// Server serves both base URLs from one listener. Rooms listed in
// RoomPasswords are protected; a request passes with the matching
// X-Room-Password or with a proof minted while the account had that password
// saved (or owned the claim).
type Server struct {
	*httptest.Server

	mu               sync.Mutex
	Token            string
	Now              func() time.Time
	messages         map[string][]map[string]any
	roomPasswords    map[string]string
	accountPasswords map[string]string
	claims           map[string]models.ClaimInfo
	proofs           map[string]proofGrant
	proofSeq         int
	forced           map[string][]int
	requests         []Recorded
	failMint         bool
}

func New() *Server {
	s := &Server{
		Token:            DefaultToken,
		Now:              time.Now,
		messages:         make(map[string][]map[string]any),
		roomPasswords:    make(map[string]string),
		accountPasswords: make(map[string]string),
		claims:           make(map[string]models.ClaimInfo),
		proofs:           make(map[string]proofGrant),
		forced:           make(map[string][]int),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/room/{room}/messages", s.handleMessages)
	r.Post("/room/{room}/send", s.handleSend)

	r.Post("/login", s.handleLogin)
	r.Post("/create", s.handleLogin)
	r.Get("/claimed-chats", s.handleClaimedChats)

	r.Route("/user", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/room-proof", s.handleRoomProof)
		r.Get("/room-passwords", s.handleListPasswords)
		r.Post("/room-passwords", s.handleSavePassword)
		r.Delete("/room-passwords", s.handleDeletePassword)
		r.Post("/claim-chat", s.handleClaim)
		r.Post("/unclaim-chat", s.handleUnclaim)
		r.Post("/update-claim-password", s.handleUpdateClaim)
	})
	return r
}

// ---- test controls ----

func (s *Server) SetRoomPassword(room, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomPasswords[room] = password
}

func (s *Server) SetAccountPassword(room, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountPasswords[room] = password
}

func (s *Server) AccountPassword(room string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.accountPasswords[room]
	return p, ok
}

// AddMessages appends messages shaped like the real service's rows.
func (s *Server) AddMessages(room string, msgs ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[room] = append(s.messages[room], msgs...)
}

// SetMessages replaces a room's list, e.g. to simulate server-side deletion.
func (s *Server) SetMessages(room string, msgs ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[room] = append([]map[string]any(nil), msgs...)
}

// ForceStatus makes the next len(statuses) requests to path answer with the
// given statuses instead of being handled.
func (s *Server) ForceStatus(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[path] = append(s.forced[path], statuses...)
}

func (s *Server) FailMint(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failMint = fail
}

func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Count returns how many requests hit method+path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// ---- middleware ----

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:       r.Method,
			Path:         r.URL.Path,
			Token:        r.Header.Get("Authorization"),
			Proof:        r.Header.Get("X-Room-Auth"),
			RoomPassword: r.Header.Get("X-Room-Password"),
		})
		var forced int
		if q := s.forced[r.URL.Path]; len(q) > 0 {
			forced, s.forced[r.URL.Path] = q[0], q[1:]
		}
		s.mu.Unlock()

		if forced != 0 {
			writeJSON(w, forced, map[string]any{"success": false, "error": http.StatusText(forced)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != s.Token {
			writeJSON(w, http.StatusUnauthorized, models.ActionResult{Error: "not logged in"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- chat ----

func (s *Server) allowed(r *http.Request, room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, protected := s.roomPasswords[room]
	if !protected {
		return true
	}
	if r.Header.Get("X-Room-Password") == want {
		return true
	}
	g, ok := s.proofs[r.Header.Get("X-Room-Auth")]
	return ok && g.room == room && s.Now().Before(g.expires)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if !s.allowed(r, room) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "room password required"})
		return
	}
	s.mu.Lock()
	msgs := append([]map[string]any{}, s.messages[room]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if !s.allowed(r, room) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "room password required"})
		return
	}
	var body models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "text required"})
		return
	}
	s.mu.Lock()
	s.messages[room] = append(s.messages[room], map[string]any{
		"username": "me",
		"text":     body.Text,
		"ts":       s.Now().UnixMilli(),
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ---- account ----

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Username == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.LoginResponse{Error: "username and password required"})
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{Success: true, Token: s.Token})
}

func (s *Server) handleRoomProof(w http.ResponseWriter, r *http.Request) {
	var req models.ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Room == "" {
		writeJSON(w, http.StatusBadRequest, models.ProofResponse{Error: "room required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMint {
		writeJSON(w, http.StatusOK, models.ProofResponse{Success: false, Error: "mint disabled"})
		return
	}
	s.proofSeq++
	token := fmt.Sprintf("proof-%s-%d", req.Room, s.proofSeq)
	exp := s.Now().Add(ProofTTL)
	want, protected := s.roomPasswords[req.Room]
	_, claimed := s.claims[req.Room]
	if !protected || s.accountPasswords[req.Room] == want || claimed {
		s.proofs[token] = proofGrant{room: req.Room, expires: exp}
	}
	writeJSON(w, http.StatusOK, models.ProofResponse{Success: true, Proof: token, Expires: exp.UnixMilli()})
}

func (s *Server) handleListPasswords(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	pw := make(map[string]*string, len(s.accountPasswords))
	for k, v := range s.accountPasswords {
		v := v
		pw[k] = &v
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.RoomPasswordsResponse{Success: true, Passwords: pw})
}

func (s *Server) handleSavePassword(w http.ResponseWriter, r *http.Request) {
	var req models.RoomPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Room == "" {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "room required"})
		return
	}
	s.SetAccountPassword(req.Room, req.Password)
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

func (s *Server) handleDeletePassword(w http.ResponseWriter, r *http.Request) {
	var req models.RoomPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Room == "" {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "room required"})
		return
	}
	s.mu.Lock()
	delete(s.accountPasswords, req.Room)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatName == "" {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "chat_name required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.claims[req.ChatName]; taken {
		writeJSON(w, http.StatusConflict, models.ActionResult{Error: "already claimed"})
		return
	}
	s.claims[req.ChatName] = models.ClaimInfo{ChatName: req.ChatName, ClaimedBy: "me", ClaimedAt: s.Now().UnixMilli()}
	if req.Password != "" {
		s.roomPasswords[req.ChatName] = req.Password
		s.accountPasswords[req.ChatName] = req.Password
	}
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

func (s *Server) handleUnclaim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatName == "" {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "chat_name required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[req.ChatName]; !ok {
		writeJSON(w, http.StatusNotFound, models.ActionResult{Error: "not claimed"})
		return
	}
	delete(s.claims, req.ChatName)
	delete(s.roomPasswords, req.ChatName)
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

func (s *Server) handleUpdateClaim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatName == "" {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "chat_name required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[req.ChatName]; !ok {
		writeJSON(w, http.StatusForbidden, models.ActionResult{Error: "not your chat"})
		return
	}
	s.roomPasswords[req.ChatName] = req.Password
	s.accountPasswords[req.ChatName] = req.Password
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

func (s *Server) handleClaimedChats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	claimed := make([]models.ClaimInfo, 0, len(s.claims))
	for _, c := range s.claims {
		claimed = append(claimed, c)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.ClaimedChatsResponse{Success: true, Claimed: claimed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
