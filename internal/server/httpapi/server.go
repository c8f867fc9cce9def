// Package httpapi exposes the service layer over HTTP. It owns the JSON
// wire format, the session cookie and the single place where taxonomy
// error codes become status codes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/logging"
	sc "github.com/clouds-team/clouds/internal/server/config"
	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/services"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "sessionId"

// AuthProvider is the slice of the auth service the HTTP layer uses.
type AuthProvider interface {
	Signup(ctx context.Context, req *services.SignupRequest) (*models.User, error)
	Verify(ctx context.Context, email, code string) error
	VerifyByCode(ctx context.Context, code string) error
	ConfirmLink(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	InitLogin(ctx context.Context, email, ip string) (string, string, error)
	Authenticate(ctx context.Context, req *services.AuthRequest) (*services.LoginResult, error)
	VerifySession(ctx context.Context, token string) (int64, bool, error)
	Logout(ctx context.Context, token string) error
	VerifyPassword(ctx context.Context, token, authKeyHash, ip string) error
	UpdatePassword(ctx context.Context, req *services.UpdatePasswordRequest) error
}

// FileProvider is the slice of the file service the HTTP layer uses.
type FileProvider interface {
	CreateMetadata(ctx context.Context, holderID int64, name string, sizeBytes int64, contentType string) (*models.File, error)
	AttachContent(ctx context.Context, fileID, holderID int64, content []byte, wrappedKey, fileIV, fileTag, keyIV string) error
	Transfer(ctx context.Context, fileID, sourceHolderID int64, recipientEmail, newWrappedKey, newKeyIV string) error
	Delete(ctx context.Context, fileID, holderID int64) error
	List(ctx context.Context, holderID int64, page int) (*services.FileListResult, error)
	DetailsForDownload(ctx context.Context, fileID, holderID int64) (*services.FileDetails, error)
	DownloadContent(ctx context.Context, fileID, holderID int64) ([]byte, error)
}

// UserProvider is the slice of the user service the HTTP layer uses.
type UserProvider interface {
	Profile(ctx context.Context, userID int64) (*models.User, error)
	PublicKeyByEmail(ctx context.Context, email string) (string, error)
	PublicKeyByUsername(ctx context.Context, username string) (string, error)
	DeleteFiles(ctx context.Context, userID int64) error
	DeleteAccount(ctx context.Context, userID int64) error
}

// Server wires the providers to chi routes.
type Server struct {
	config *sc.Config
	logger logging.Logger
	auth   AuthProvider
	files  FileProvider
	users  UserProvider
}

func NewServer(cfg *sc.Config, logger logging.Logger, auth AuthProvider, files FileProvider, users UserProvider) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		auth:   auth,
		files:  files,
		users:  users,
	}
}

// statusFor maps a taxonomy code to an HTTP status. This is the only
// place in the server where that mapping exists.
func statusFor(code common.Code) int {
	switch code {
	case common.CodeThrottled:
		return http.StatusTooManyRequests
	case common.CodeInvalidCredentials, common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.CodeOf(err)
	status := statusFor(code)

	msg := "An unexpected error occurred"
	var ce *common.Error
	if errors.As(err, &ce) {
		msg = ce.Message
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	s.writeJSON(w, status, apiResponse{Success: false, Message: msg, ErrorCode: string(code)})
}

func (s *Server) writeSuccess(w http.ResponseWriter, message string, data any) {
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.Wrap(common.CodeValidation, "Invalid request body", err)
	}
	return nil
}

// clientIP extracts the caller address: X-Real-IP wins, then the first
// X-Forwarded-For entry, then the connection's remote address.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	s.setSessionCookie(w, "", -1)
}
