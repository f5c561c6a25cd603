// ABOUTME: Persisted login session: user identity, token checks and temp flow keys
// ABOUTME: Wraps a Store; all reads and writes go through it with no caching

package session

import (
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session keys
const (
	KeyEmail          = "userEmail"
	KeyUsername       = "username"
	KeyHashedPassword = "hashedPassword"
	KeyToken          = "jwtToken"
	KeyUserID         = "userId"
	KeyLastActivity   = "lastActivity"
)

// TempPrefix marks keys that only live for the duration of a multi-step flow.
const TempPrefix = "temp_"

// Idle thresholds
const (
	IdleWarningAfter = 25 * time.Minute
	IdleTimeout      = 30 * time.Minute
)

// UserData is the identity persisted after login or signup.
type UserData struct {
	Email          string `json:"email"`
	Username       string `json:"username"`
	HashedPassword string `json:"hashedPassword,omitempty"`
	Token          string `json:"jwtToken,omitempty"`
	ID             string `json:"id"`
}

// IdleStatus describes how long the user has been inactive.
type IdleStatus struct {
	Idle        time.Duration
	Warning     bool // inside the warning window, not yet expired
	Expired     bool
	MinutesLeft int
}

type Session struct {
	store Store
	now   func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func New(store Store, opts ...Option) *Session {
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store.
func (s *Session) Store() Store {
	return s.store
}

// SetUserData writes the non-empty fields of u, leaving others untouched.
func (s *Session) SetUserData(u UserData) error {
	fields := []struct{ key, value string }{
		{KeyEmail, u.Email},
		{KeyUsername, u.Username},
		{KeyHashedPassword, u.HashedPassword},
		{KeyToken, u.Token},
		{KeyUserID, u.ID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := s.store.Set(f.key, f.value); err != nil {
			return err
		}
	}
	slog.Debug("Session user data saved", "email", u.Email, "user_id", u.ID)
	return nil
}

func (s *Session) UserData() (UserData, error) {
	var u UserData
	var err error
	read := func(key string, dst *string) {
		if err != nil {
			return
		}
		*dst, err = s.store.Get(key)
	}
	read(KeyEmail, &u.Email)
	read(KeyUsername, &u.Username)
	read(KeyHashedPassword, &u.HashedPassword)
	read(KeyToken, &u.Token)
	read(KeyUserID, &u.ID)
	if err != nil {
		return UserData{}, err
	}
	return u, nil
}

// Get reads a single key.
func (s *Session) Get(key string) (string, error) {
	return s.store.Get(key)
}

func (s *Session) UpdateField(key, value string) error {
	return s.store.Set(key, value)
}

// Clear removes every key, temp keys included.
func (s *Session) Clear() error {
	return s.store.Clear()
}

// IsLoggedIn reports whether a structurally valid, unexpired token is
// stored. Anything else clears the session. The signature is not checked.
func (s *Session) IsLoggedIn() bool {
	token, err := s.store.Get(KeyToken)
	if err != nil {
		slog.Warn("Reading session token failed", "error", err)
		return false
	}
	if token == "" {
		return false
	}

	if len(strings.Split(token, ".")) != 3 {
		slog.Debug("Invalid token structure, clearing session")
		s.clearQuietly()
		return false
	}

	exp, err := tokenExpiry(token)
	if err != nil {
		slog.Debug("Token payload not decodable, clearing session", "error", err)
		s.clearQuietly()
		return false
	}
	if exp != nil && exp.Before(s.now()) {
		slog.Debug("Token expired, clearing session", "exp", exp)
		s.clearQuietly()
		return false
	}
	return true
}

// TokenExpiry returns the exp claim of the stored token, if there is one.
func (s *Session) TokenExpiry() (time.Time, bool) {
	token, err := s.store.Get(KeyToken)
	if err != nil || token == "" {
		return time.Time{}, false
	}
	exp, err := tokenExpiry(token)
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return *exp, true
}

func tokenExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, nil
	}
	return &exp.Time, nil
}

func (s *Session) clearQuietly() {
	if err := s.store.Clear(); err != nil {
		slog.Warn("Clearing session failed", "error", err)
	}
}

func (s *Session) SetTemp(key, value string) error {
	return s.store.Set(TempPrefix+key, value)
}

func (s *Session) Temp(key string) (string, error) {
	return s.store.Get(TempPrefix + key)
}

func (s *Session) ClearTemp(key string) error {
	return s.store.Delete(TempPrefix + key)
}

// ClearAllTemp removes every temp_ key and nothing else.
func (s *Session) ClearAllTemp() error {
	keys, err := s.store.Keys()
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if strings.HasPrefix(k, TempPrefix) {
			if err := s.store.Delete(k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Touch records user activity now.
func (s *Session) Touch() error {
	return s.store.Set(KeyLastActivity, strconv.FormatInt(s.now().UnixMilli(), 10))
}

// Extend is what "stay logged in" does.
func (s *Session) Extend() error {
	return s.Touch()
}

// Idle reports inactivity since the last Touch. No recorded activity
// reads as not idle.
func (s *Session) Idle() IdleStatus {
	raw, err := s.store.Get(KeyLastActivity)
	if err != nil || raw == "" {
		return IdleStatus{MinutesLeft: int(IdleTimeout / time.Minute)}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return IdleStatus{MinutesLeft: int(IdleTimeout / time.Minute)}
	}

	idle := s.now().Sub(time.UnixMilli(ms))
	if idle < 0 {
		idle = 0
	}
	left := int(math.Ceil((IdleTimeout - idle).Minutes()))
	if left < 0 {
		left = 0
	}
	return IdleStatus{
		Idle:        idle,
		Warning:     idle >= IdleWarningAfter && idle < IdleTimeout,
		Expired:     idle >= IdleTimeout,
		MinutesLeft: left,
	}
}
