package httpapi

import (
	"net/http"

	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ip := req.IP
	if ip == "" {
		ip = clientIP(r)
	}

	_, err := s.auth.Signup(r.Context(), &services.SignupRequest{
		Username:                req.Username,
		Name:                    req.Name,
		Surname:                 req.Surname,
		Email:                   req.Email,
		SignupIP:                ip,
		Salt:                    req.Salt,
		AuthSalt:                req.AuthSalt,
		EncSalt:                 req.EncSalt,
		MasterKeySalt:           req.EncMKSalt,
		AuthKeyHash:             req.HashedAuthenticationKey,
		EncryptedMasterKey:      req.EncryptedMasterKey,
		EncryptedMasterKeyIV:    req.EncryptedMasterKeyIV,
		PublicKey:               req.PublicKey,
		EncryptedPrivateKey:     req.EncryptedPrivateKey,
		EncryptedPrivateKeyIV:   req.EncryptedPrivateKeyIV,
		EncryptedPrivateKeySalt: req.EncryptedPrivateKeySalt,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "Registration successful. Please check your email to verify your account.", nil)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var err error
	if req.Email != "" {
		err = s.auth.Verify(r.Context(), req.Email, req.VerificationCode)
	} else {
		err = s.auth.VerifyByCode(r.Context(), req.VerificationCode)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "Email verification successful. You can now log in.", nil)
}

const confirmSuccessHTML = `<!DOCTYPE html>
<html><head><title>Account verified</title></head>
<body><h1>Your account has been verified.</h1><p>You can close this page and log in.</p></body></html>`

const confirmFailedHTML = `<!DOCTYPE html>
<html><head><title>Verification failed</title></head>
<body><h1>Verification failed.</h1><p>The link is invalid or has expired.</p></body></html>`

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.auth.ConfirmLink(r.Context(), token); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(confirmFailedHTML))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(confirmSuccessHTML))
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ResendVerification(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "Verification email sent.", nil)
}

func (s *Server) handleLoginInit(w http.ResponseWriter, r *http.Request) {
	var req loginInitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	salt, authSalt, err := s.auth.InitLogin(r.Context(), req.Email, clientIP(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginInitResponse{
		Salt:     salt,
		AuthSalt: authSalt,
		Success:  true,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Authenticate(r.Context(), &services.AuthRequest{
		Email:       req.Email,
		AuthKeyHash: req.AuthHash,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, res.Token, int(s.config.SessionValidityDuration.Seconds()))

	cred := res.Credential
	s.writeJSON(w, http.StatusOK, loginResponse{
		EncryptedMasterKey:      cred.EncryptedMasterKey,
		EncryptedMasterKeyIV:    cred.EncryptedMasterKeyIV,
		SaltMK:                  cred.MasterKeySalt,
		SaltEncryption:          cred.EncSalt,
		EncryptedPrivateKey:     cred.EncryptedPrivateKey,
		EncryptedPrivateKeyIV:   cred.EncryptedPrivateKeyIV,
		EncryptedPrivateKeySalt: cred.EncryptedPrivateKeySalt,
		SessionID:               res.Token,
		Success:                 true,
	})
}

func (s *Server) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	_, ok, err := s.auth.VerifySession(r.Context(), sessionToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, sessionVerificationResponse{
			IsValid: false,
			Error:   "Session is invalid or expired",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, sessionVerificationResponse{
		IsValid: true,
		Message: "Session is valid",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	s.writeSuccess(w, "Logged out.", nil)
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req loginAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.VerifyPassword(r.Context(), sessionToken(r), req.AuthHash, clientIP(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "Password verified.", nil)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.auth.UpdatePassword(r.Context(), &services.UpdatePasswordRequest{
		Token:              sessionToken(r),
		CurrentAuthKeyHash: req.CurrentAuthHash,
		IP:                 clientIP(r),
		NewCredential: &models.Credential{
			Salt:                 req.Salt,
			AuthSalt:             req.AuthSalt,
			EncSalt:              req.EncSalt,
			AuthKeyHash:          req.HashedAuthenticationKey,
			EncryptedMasterKey:   req.EncryptedMasterKey,
			EncryptedMasterKeyIV: req.EncryptedMasterKeyIV,
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// every session is invalidated by the rotation, this one included
	s.clearSessionCookie(w)
	s.writeSuccess(w, "Password updated. Please log in again.", nil)
}
