// ABOUTME: In-memory fake of the collabfs backend for tests and local demos
// ABOUTME: Implements the auth and group endpoints over a gorilla/mux router

package apitest

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAuthKey  = "test-auth-key"
	DefaultGroupKey = "test-group-key"
)

type user struct {
	ID       string
	Email    string
	Username string
	Hash     string
}

type group struct {
	ID           string
	Name         string
	Description  string
	LastModified string
	Members      map[string]string // userID -> role
	StorageUsed  int64
	Frequency    map[string]int
}

// Server is a running fake backend. All state is guarded by mu.
type Server struct {
	*httptest.Server

	AuthKey  string
	GroupKey string
	TokenTTL time.Duration

	mu       sync.Mutex
	secret   []byte
	now      func() time.Time
	users    map[string]*user // by email
	otps     map[string]string
	groups   map[string]*group
	starred  map[string]map[string]bool // userID -> groupID
	failures map[string]failure
	hits     map[string]int
	limiter  *rateLimiter
}

type failure struct {
	status int
	detail string
}

// Option configures a Server before it starts
type Option func(*Server)

func WithKeys(authKey, groupKey string) Option {
	return func(s *Server) {
		s.AuthKey = authKey
		s.GroupKey = groupKey
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.TokenTTL = d }
}

// WithOTPLimit caps OTP sends per client per period
func WithOTPLimit(limit int, period time.Duration) Option {
	return func(s *Server) {
		s.limiter = newRateLimiter(limit, period, func() time.Time { return s.now() })
	}
}

// NewServer starts a fake backend on a loopback port. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		AuthKey:  DefaultAuthKey,
		GroupKey: DefaultGroupKey,
		TokenTTL: time.Hour,
		secret:   []byte(uuid.NewString()),
		now:      time.Now,
		users:    make(map[string]*user),
		otps:     make(map[string]string),
		groups:   make(map[string]*group),
		starred:  make(map[string]map[string]bool),
		failures: make(map[string]failure),
		hits:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// Router builds the route table. Exposed so the handler can be mounted elsewhere.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	auth := func(h http.HandlerFunc, extra ...middlewareFunc) http.HandlerFunc {
		mws := append([]middlewareFunc{logRequest, s.track, requireKey(s.AuthKey)}, extra...)
		return chain(h, mws...)
	}
	grp := func(h http.HandlerFunc) http.HandlerFunc {
		return chain(h, logRequest, s.track, requireKey(s.GroupKey))
	}

	r.HandleFunc("/auth/email/login", auth(s.handleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/auth/email/signup", auth(s.handleSignup)).Methods(http.MethodPost)
	r.HandleFunc("/auth/email/signup/sendotp", auth(s.handleSendOTP, rateLimit(s.limiter))).Methods(http.MethodPost)
	r.HandleFunc("/auth/email/setuserid", auth(s.handleSetUserID)).Methods(http.MethodPost)
	r.HandleFunc("/auth/email/verifyotp", auth(s.handleVerifyOTP)).Methods(http.MethodPost)
	r.HandleFunc("/auth/updatepassword", auth(s.handleUpdatePassword)).Methods(http.MethodPost)

	r.HandleFunc("/group/groupstorage/{userId}", grp(s.handleGroupStorage)).Methods(http.MethodGet)
	r.HandleFunc("/group/groupstorage/{userId}/{query}", grp(s.handleGroupStorage)).Methods(http.MethodGet)
	r.HandleFunc("/group/starred/{userId}", grp(s.handleStarred)).Methods(http.MethodGet)
	r.HandleFunc("/group/search/{userId}/{query}", grp(s.handleSearch)).Methods(http.MethodGet)
	r.HandleFunc("/group/userstorage/{userId}", grp(s.handleUserStorage)).Methods(http.MethodGet)
	r.HandleFunc("/group/staragroup", grp(s.handleStar)).Methods(http.MethodPost)
	r.HandleFunc("/group/unstaragroup", grp(s.handleUnstar)).Methods(http.MethodDelete)
	r.HandleFunc("/group/create", grp(s.handleCreateGroup)).Methods(http.MethodPost)

	return r
}

// track counts hits and serves injected failures
func (s *Server) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		tpl := r.URL.Path
		if route != nil {
			if t, err := route.GetPathTemplate(); err == nil {
				tpl = t
			}
		}

		s.mu.Lock()
		s.hits[tpl]++
		f, failing := s.failures[tpl]
		if failing {
			delete(s.failures, tpl)
		}
		s.mu.Unlock()

		if failing {
			writeDetail(w, f.status, f.detail)
			return
		}
		next(w, r)
	}
}

// FailNext makes the next request to route (a path template such as
// "/group/staragroup") fail with status and detail.
func (s *Server) FailNext(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

// Hits returns how many requests reached route
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// OTP returns the last code issued to email, as if read from the inbox.
func (s *Server) OTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[strings.ToLower(email)]
}

// AddUser registers an account directly and returns its id
func (s *Server) AddUser(email, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{ID: uuid.NewString(), Email: strings.ToLower(email), Username: username, Hash: string(hash)}
	s.users[u.Email] = u
	return u.ID, nil
}

// AddGroup creates a group owned by ownerID and returns its id
func (s *Server) AddGroup(ownerID, name string, used int64, frequency map[string]int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &group{
		ID:           uuid.NewString(),
		Name:         name,
		LastModified: s.now().Format("2006-01-02 15:04"),
		Members:      map[string]string{ownerID: "owner"},
		StorageUsed:  used,
		Frequency:    frequency,
	}
	s.groups[g.ID] = g
	return g.ID
}

// AddMember gives userID a role in an existing group
func (s *Server) AddMember(groupID, userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[groupID]; ok {
		g.Members[userID] = role
	}
}

// IsStarred reports the server-side star state
func (s *Server) IsStarred(userID, groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starred[userID][groupID]
}

// GroupNames lists the names of groups userID belongs to, sorted
func (s *Server) GroupNames(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, g := range s.visibleGroups(userID) {
		names = append(names, g.Name)
	}
	return names
}

// visibleGroups returns userID's groups sorted by name. Caller holds mu.
func (s *Server) visibleGroups(userID string) []*group {
	var out []*group
	for _, g := range s.groups {
		if _, ok := g.Members[userID]; ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.TokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
