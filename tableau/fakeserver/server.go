// Package fakeserver is an in-process Tableau Server covering the REST sign-in, sign-out
// and user query endpoints plus the vizportal PAT endpoint.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	AdminID  = "admin-luid"
	SiteID   = "site-luid"
	patPath  = "/vizportal/api/web/v1/createPersonalAccessToken"
	cookieID = "workgroup_session_id"
)

// SignIn is one recorded sign-in request.
type SignIn struct {
	Name          string
	Site          string
	ImpersonateID string
}

// PAT is one minted personal access token.
type PAT struct {
	UserID   string
	ClientID string
	Value    string
}

// Failure forces a status code and body for a user's PAT request.
type Failure struct {
	Status int
	Body   string
}

type user struct {
	id   string
	name string
}

// Server is a fake Tableau Server.
type Server struct {
	*httptest.Server

	APIVersion    string
	AdminName     string
	AdminPassword string
	SiteContent   string

	mu          sync.Mutex
	users       []user
	tokens      map[string]string // token -> acting user id
	signIns     []SignIn
	signOuts    int
	pats        []PAT
	patFailures map[string]Failure
	patRequests []http.Header
}

// New starts a fake server. With useTLS the server presents a self-signed certificate.
func New(useTLS bool) *Server {
	s := &Server{
		APIVersion:    "3.19",
		AdminName:     "admin",
		AdminPassword: "s3cret",
		SiteContent:   "marketing",
		tokens:        make(map[string]string),
		patFailures:   make(map[string]Failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{version}/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/{version}/auth/signout", s.handleSignOut)
	mux.HandleFunc("GET /api/{version}/sites/{site}/users", s.handleUsers)
	mux.HandleFunc("POST "+patPath, s.handlePAT)

	if useTLS {
		s.Server = httptest.NewTLSServer(mux)
	} else {
		s.Server = httptest.NewServer(mux)
	}
	return s
}

// AddUser registers a site user.
func (s *Server) AddUser(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user{id: id, name: name})
}

// FailPAT makes PAT creation for userID respond with status and body.
func (s *Server) FailPAT(userID string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patFailures[userID] = Failure{Status: status, Body: body}
}

func (s *Server) SignIns() []SignIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SignIn(nil), s.signIns...)
}

func (s *Server) SignOuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOuts
}

// OpenSessions counts tokens that were issued and not signed out.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *Server) PATs() []PAT {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PAT(nil), s.pats...)
}

// PATRequestHeaders returns the headers of every PAT request received.
func (s *Server) PATRequestHeaders() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.patRequests...)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("version") != s.APIVersion {
		writeError(w, http.StatusNotFound, "404000", "Resource Not Found")
		return
	}
	var body struct {
		Credentials struct {
			Name     string `json:"name"`
			Password string `json:"password"`
			Site     struct {
				ContentURL string `json:"contentUrl"`
			} `json:"site"`
			User *struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "400000", "Bad Request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := body.Credentials
	signIn := SignIn{Name: c.Name, Site: c.Site.ContentURL}
	if c.User != nil {
		signIn.ImpersonateID = c.User.ID
	}
	s.signIns = append(s.signIns, signIn)

	if c.Name != s.AdminName || c.Password != s.AdminPassword || c.Site.ContentURL != s.SiteContent {
		writeError(w, http.StatusUnauthorized, "401001", "Signin Error")
		return
	}
	acting := AdminID
	if signIn.ImpersonateID != "" {
		if !s.hasUserID(signIn.ImpersonateID) {
			writeError(w, http.StatusUnauthorized, "401001", "Signin Error")
			return
		}
		acting = signIn.ImpersonateID
	}

	token := uuid.NewString()
	s.tokens[token] = acting

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"credentials": map[string]any{
			"token": token,
			"site":  map[string]string{"id": SiteID, "contentUrl": s.SiteContent},
			"user":  map[string]string{"id": acting},
		},
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := r.Header.Get("X-Tableau-Auth")
	if _, ok := s.tokens[token]; !ok {
		writeError(w, http.StatusUnauthorized, "401002", "Unauthorized Access")
		return
	}
	delete(s.tokens, token)
	s.signOuts++
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[r.Header.Get("X-Tableau-Auth")]; !ok {
		writeError(w, http.StatusUnauthorized, "401002", "Unauthorized Access")
		return
	}
	if r.PathValue("site") != SiteID {
		writeError(w, http.StatusNotFound, "404000", "Site Not Found")
		return
	}
	name, ok := strings.CutPrefix(r.URL.Query().Get("filter"), "name:eq:")
	if !ok {
		writeError(w, http.StatusBadRequest, "400065", "Bad Request")
		return
	}

	matches := make([]map[string]string, 0)
	for _, u := range s.users {
		if u.name == name {
			matches = append(matches, map[string]string{"id": u.id, "name": u.name, "siteRole": "Explorer"})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pagination": map[string]string{
			"pageNumber":     "1",
			"pageSize":       "100",
			"totalAvailable": fmt.Sprint(len(matches)),
		},
		"users": map[string]any{"user": matches},
	})
}

func (s *Server) handlePAT(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patRequests = append(s.patRequests, r.Header.Clone())

	cookie, err := r.Cookie(cookieID)
	if err != nil {
		http.Error(w, `{"errors":[{"code":2,"message":"not authenticated"}]}`, http.StatusUnauthorized)
		return
	}
	acting, ok := s.tokens[cookie.Value]
	if !ok {
		http.Error(w, `{"errors":[{"code":2,"message":"session expired"}]}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Method string `json:"method"`
		Params struct {
			ClientID string `json:"clientId"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Method != "createPersonalAccessToken" || body.Params.ClientID == "" {
		http.Error(w, `{"errors":[{"code":9,"message":"bad request"}]}`, http.StatusBadRequest)
		return
	}

	if failure, ok := s.patFailures[acting]; ok {
		http.Error(w, failure.Body, failure.Status)
		return
	}

	value := "secret-" + uuid.NewString()
	s.pats = append(s.pats, PAT{UserID: acting, ClientID: body.Params.ClientID, Value: value})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"result": value})
}

func (s *Server) hasUserID(id string) bool {
	for _, u := range s.users {
		if u.id == id {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, code, summary string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "summary": summary, "detail": summary},
	})
}
