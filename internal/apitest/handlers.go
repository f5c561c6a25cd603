// ABOUTME: Request handlers for the fake backend's auth and group endpoints
// ABOUTME: Response shapes mirror what the real backend returns

package apitest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type authRequest struct {
	Email    string `json:"email"`
	Pwd      string `json:"pwd"`
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

type starRequest struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "Invalid request body"}},
		})
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(req.Pwd)) != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}

	token, err := s.issueToken(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"session_details": map[string]string{
			"id": u.ID, "email": u.Email, "username": u.Username,
		},
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Pwd == "" || req.Username == "" {
		writeDetail(w, http.StatusBadRequest, "Email, password and username are required")
		return
	}

	s.mu.Lock()
	_, exists := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "User already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pwd), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session_details": map[string]string{
			"email":           strings.ToLower(req.Email),
			"username":        req.Username,
			"hashed_password": string(hash),
		},
	})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeDetail(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	code, err := newOTP()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to generate OTP")
		return
	}
	s.mu.Lock()
	s.otps[strings.ToLower(req.Email)] = code
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent successfully"})
}

// checkOTP compares and, when consume is set, burns the code.
func (s *Server) checkOTP(email, otp string, consume bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	want, ok := s.otps[email]
	if !ok || want != otp {
		return false
	}
	if consume {
		delete(s.otps, email)
	}
	return true
}

func (s *Server) handleSetUserID(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.checkOTP(req.Email, req.OTP, true) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	u := &user{ID: uuid.NewString(), Email: strings.ToLower(req.Email), Username: req.Username, Hash: req.Pwd}
	s.mu.Lock()
	if _, exists := s.users[u.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "User already exists"})
		return
	}
	s.users[u.Email] = u
	s.mu.Unlock()

	token, err := s.issueToken(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"id":             u.ID,
		"email":          u.Email,
		"username":       u.Username,
		"hashedPassword": u.Hash,
		"token":          token,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.checkOTP(req.Email, req.OTP, false) {
		writeDetail(w, http.StatusBadRequest, "Invalid verification code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified successfully"})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if !s.checkOTP(req.Email, req.OTP, true) {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pwd), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	s.mu.Lock()
	u.Hash = string(hash)
	s.mu.Unlock()

	token, err := s.issueToken(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Password updated successfully",
		"pwd":      string(hash),
		"token":    token,
		"user_id":  u.ID,
		"username": u.Username,
	})
}

func (s *Server) listingRecord(g *group, userID string) map[string]any {
	return map[string]any{
		"groupId":      g.ID,
		"groupName":    g.Name,
		"role":         g.Members[userID],
		"lastModified": g.LastModified,
		"starred":      s.starred[userID][g.ID],
	}
}

func storageRecord(g *group) map[string]any {
	freq := map[string]map[string]int{}
	for k, v := range g.Frequency {
		freq[k] = map[string]int{"count": v}
	}
	return map[string]any{
		"groupId":     g.ID,
		"groupName":   g.Name,
		"storageUsed": g.StorageUsed,
		"frequency":   freq,
	}
}

func matches(name, query string) bool {
	if query == "" || query == "__empty__" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func (s *Server) handleGroupStorage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	out := []map[string]any{}
	for _, g := range s.visibleGroups(vars["userId"]) {
		if matches(g.Name, vars["query"]) {
			out = append(out, storageRecord(g))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStarred(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	out := []map[string]any{}
	for _, g := range s.visibleGroups(userID) {
		if s.starred[userID][g.ID] {
			out = append(out, s.listingRecord(g, userID))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["userId"]
	s.mu.Lock()
	out := []map[string]any{}
	for _, g := range s.visibleGroups(userID) {
		if matches(g.Name, vars["query"]) {
			out = append(out, s.listingRecord(g, userID))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUserStorage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	s.mu.Lock()
	var total int64
	for _, g := range s.visibleGroups(userID) {
		if g.Members[userID] == "owner" {
			total += g.StorageUsed
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"storageUsed": total})
}

func (s *Server) setStar(w http.ResponseWriter, r *http.Request, starred bool) {
	var req starRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[req.GroupID]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Group not found")
		return
	}
	if _, member := g.Members[req.UserID]; !member {
		writeDetail(w, http.StatusForbidden, "Not a member of this group")
		return
	}
	if s.starred[req.UserID] == nil {
		s.starred[req.UserID] = make(map[string]bool)
	}
	if starred {
		s.starred[req.UserID][req.GroupID] = true
		writeJSON(w, http.StatusOK, map[string]string{"message": "Group starred successfully"})
		return
	}
	delete(s.starred[req.UserID], req.GroupID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Group unstarred successfully"})
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	s.setStar(w, r, true)
}

func (s *Server) handleUnstar(w http.ResponseWriter, r *http.Request) {
	s.setStar(w, r, false)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"userId"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDetail(w, http.StatusBadRequest, "Group name is required")
		return
	}

	id := s.AddGroup(req.UserID, req.Name, 0, nil)
	s.mu.Lock()
	s.groups[id].Description = req.Description
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"groupId": id, "message": "Group created successfully"})
}
