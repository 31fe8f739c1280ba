package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/mangareview/internal/domain"
	"github.com/Clark-Hu/mangareview/internal/service"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	Liked     int64     `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user, token, err := s.svc.Register(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toTokenResponse(user, token))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user, token, err := s.svc.Login(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toTokenResponse(user, token))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Logout(r.Context(), identity(r)); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "userID")
	if !ok {
		return
	}
	user, err := s.svc.GetUser(r.Context(), ids[0])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.idParams(w, r, "userID")
	if !ok {
		return
	}
	if err := s.svc.DeleteUser(r.Context(), identity(r), ids[0]); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		Liked:     user.Liked,
		CreatedAt: user.CreatedAt,
	}
}

func toTokenResponse(user domain.User, token service.Token) tokenResponse {
	return tokenResponse{
		User:        toUserResponse(user),
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt,
	}
}
