package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Profile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "Profile retrieved successfully", userProfileResponse{
		Username:         user.Username,
		Name:             user.Name,
		Surname:          user.Surname,
		Email:            user.Email,
		RegistrationDate: user.RegistrationDate.Format(time.RFC3339),
		UsedSpaceBytes:   user.UsedSpaceBytes,
		LimitSpaceBytes:  user.LimitSpaceBytes,
	})
}

func (s *Server) handlePublicKeyByEmail(w http.ResponseWriter, r *http.Request) {
	key, err := s.users.PublicKeyByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, "Public key retrieved successfully", publicKeyResponse{PublicKey: key})
}

func (s *Server) handlePublicKeyByName(w http.ResponseWriter, r *http.Request) {
	key, err := s.users.PublicKeyByUsername(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, "Public key retrieved successfully", publicKeyResponse{PublicKey: key})
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteFiles(r.Context(), userIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, "All files deleted successfully.", nil)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteAccount(r.Context(), userIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	s.writeSuccess(w, "Account deleted successfully.", nil)
}
