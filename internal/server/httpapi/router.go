package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const userIDKey ctxKey = 0

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/verify", s.handleVerify)
			r.Get("/confirm/{token}", s.handleConfirm)
			r.Post("/resend", s.handleResend)
			r.Post("/init", s.handleLoginInit)
			r.Post("/login", s.handleLogin)
			r.Get("/verify-session", s.handleVerifySession)
			r.Post("/logout", s.handleLogout)
			r.Post("/verify-password", s.handleVerifyPassword)
			r.Post("/update-password", s.handleUpdatePassword)
		})

		r.Route("/files", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/upload", s.handleFileUpload)
			r.Post("/upload/content/{fileID}", s.handleFileUploadContent)
			r.Get("/", s.handleFileList)
			r.Get("/{fileID}", s.handleFileDetails)
			r.Get("/{fileID}/content", s.handleFileContent)
			r.Delete("/{fileID}", s.handleFileDelete)
			r.Post("/transfer", s.handleFileTransfer)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/profile", s.handleProfile)
			r.Get("/public-key/email/{email}", s.handlePublicKeyByEmail)
			r.Get("/public-key/name/{name}", s.handlePublicKeyByName)
			r.Post("/delete-files", s.handleDeleteFiles)
			r.Post("/delete-account", s.handleDeleteAccount)
		})
	})

	return r
}

// requireSession resolves the session cookie to a user ID and stores it
// in the request context. Requests without a valid session get 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		userID, ok, err := s.auth.VerifySession(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !ok {
			s.writeJSON(w, http.StatusUnauthorized, apiResponse{
				Success: false,
				Message: "Authentication required",
			})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
