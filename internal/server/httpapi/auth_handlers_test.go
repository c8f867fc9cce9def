package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, router http.Handler, path string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleRegister(t *testing.T) {
	var got *services.SignupRequest
	srv := newTestServer(&fakeAuth{
		signup: func(ctx context.Context, req *services.SignupRequest) (*models.User, error) {
			got = req
			return &models.User{ID: 1, Email: req.Email}, nil
		},
	}, nil, nil)

	body := `{
		"username": "jane",
		"name": "Jane",
		"surname": "Doe",
		"email": "jane@example.com",
		"salt": "s1",
		"authSalt": "s2",
		"encSalt": "s3",
		"encMKSalt": "s4",
		"hashedAuthenticationKey": "hash",
		"encryptedMasterKey": "emk",
		"encryptedMasterKeyIv": "emk-iv",
		"publicKey": "pub",
		"encryptedPrivateKey": "epk",
		"encryptedPrivateKeyIv": "epk-iv",
		"encryptedPrivateKeySalt": "epk-salt"
	}`
	w := postJSON(t, srv.Router(), "/api/v1/auth/register", body)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body)
	assert.True(t, resp.Success)

	require.NotNil(t, got)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "s4", got.MasterKeySalt)
	assert.Equal(t, "hash", got.AuthKeyHash)
	assert.NotEmpty(t, got.SignupIP)
}

func TestHandleRegisterConflict(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		signup: func(ctx context.Context, req *services.SignupRequest) (*models.User, error) {
			return nil, common.E(common.CodeConflict, "Email already registered")
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/register", `{"email":"dup@example.com"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeEnvelope(t, w.Body)
	assert.False(t, resp.Success)
	assert.Equal(t, "Email already registered", resp.Message)
	assert.Equal(t, "conflict", resp.ErrorCode)
}

func TestHandleRegisterBadBody(t *testing.T) {
	srv := newTestServer(&fakeAuth{}, nil, nil)
	w := postJSON(t, srv.Router(), "/api/v1/auth/register", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleVerify(t *testing.T) {
	t.Run("with email", func(t *testing.T) {
		called := false
		srv := newTestServer(&fakeAuth{
			verify: func(ctx context.Context, email, code string) error {
				called = true
				assert.Equal(t, "jane@example.com", email)
				assert.Equal(t, "123456", code)
				return nil
			},
		}, nil, nil)

		w := postJSON(t, srv.Router(), "/api/v1/auth/verify",
			`{"email":"jane@example.com","verificationCode":"123456"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("code only", func(t *testing.T) {
		called := false
		srv := newTestServer(&fakeAuth{
			verifyByCode: func(ctx context.Context, code string) error {
				called = true
				assert.Equal(t, "123456", code)
				return nil
			},
		}, nil, nil)

		w := postJSON(t, srv.Router(), "/api/v1/auth/verify", `{"verificationCode":"123456"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})
}

func TestHandleConfirm(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		confirmLink: func(ctx context.Context, token string) error {
			if token == "good" {
				return nil
			}
			return common.E(common.CodeInvalidCredentials, "Invalid or expired verification code")
		},
	}, nil, nil)
	router := srv.Router()

	t.Run("valid link", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/confirm/good", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "verified")
	})

	t.Run("bad link", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/confirm/stale", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "failed")
	})
}

func TestHandleLoginInit(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		initLogin: func(ctx context.Context, email, ip string) (string, string, error) {
			assert.Equal(t, "jane@example.com", email)
			assert.NotEmpty(t, ip)
			return "salt-a", "salt-b", nil
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/init", `{"email":"jane@example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp loginInitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "salt-a", resp.Salt)
	assert.Equal(t, "salt-b", resp.AuthSalt)
}

func TestHandleLoginInitThrottled(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		initLogin: func(ctx context.Context, email, ip string) (string, string, error) {
			return "", "", common.ErrThrottled
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/init", `{"email":"jane@example.com"}`)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeEnvelope(t, w.Body)
	assert.Equal(t, common.MsgThrottled, resp.Message)
}

func TestHandleLogin(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		authenticate: func(ctx context.Context, req *services.AuthRequest) (*services.LoginResult, error) {
			assert.Equal(t, "jane@example.com", req.Email)
			assert.Equal(t, "auth-hash", req.AuthKeyHash)
			return &services.LoginResult{
				Token:     "session-token",
				ExpiresAt: time.Now().Add(24 * time.Hour),
				User:      &models.User{ID: 7},
				Credential: &models.Credential{
					EncryptedMasterKey:   "emk",
					EncryptedMasterKeyIV: "emk-iv",
					MasterKeySalt:        "mk-salt",
					EncSalt:              "enc-salt",
					EncryptedPrivateKey:  "epk",
				},
			}, nil
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/login",
		`{"email":"jane@example.com","authHash":"auth-hash"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "session-token", resp.SessionID)
	assert.Equal(t, "emk", resp.EncryptedMasterKey)
	assert.Equal(t, "mk-salt", resp.SaltMK)
	assert.Equal(t, "enc-salt", resp.SaltEncryption)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "session-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Greater(t, cookies[0].MaxAge, 0)
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		authenticate: func(ctx context.Context, req *services.AuthRequest) (*services.LoginResult, error) {
			return nil, common.ErrInvalidCredentials
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/login", `{"email":"x","authHash":"y"}`)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestHandleVerifySessionEndpoint(t *testing.T) {
	srv := newTestServer(sessionAuth("tok"), nil, nil)
	router := srv.Router()

	t.Run("valid", func(t *testing.T) {
		r := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-session", nil), "tok")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp sessionVerificationResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.IsValid)
	})

	t.Run("invalid", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify-session", nil))

		require.Equal(t, http.StatusUnauthorized, w.Code)
		var resp sessionVerificationResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.False(t, resp.IsValid)
	})
}

func TestHandleLogout(t *testing.T) {
	var loggedOut string
	srv := newTestServer(&fakeAuth{
		logout: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/logout", ``,
		&http.Cookie{Name: SessionCookieName, Value: "tok"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", loggedOut)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHandleUpdatePassword(t *testing.T) {
	var got *services.UpdatePasswordRequest
	srv := newTestServer(&fakeAuth{
		updatePassword: func(ctx context.Context, req *services.UpdatePasswordRequest) error {
			got = req
			return nil
		},
	}, nil, nil)

	body := `{
		"currentAuthHash": "old-hash",
		"salt": "new-salt",
		"authSalt": "new-auth-salt",
		"encSalt": "new-enc-salt",
		"hashedAuthenticationKey": "new-hash",
		"encryptedMasterKey": "new-emk",
		"encryptedMasterKeyIv": "new-emk-iv"
	}`
	w := postJSON(t, srv.Router(), "/api/v1/auth/update-password", body,
		&http.Cookie{Name: SessionCookieName, Value: "tok"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "old-hash", got.CurrentAuthKeyHash)
	assert.Equal(t, "new-hash", got.NewCredential.AuthKeyHash)
	assert.Equal(t, "new-emk", got.NewCredential.EncryptedMasterKey)

	// the rotation kills every session, so the cookie is cleared
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHandleVerifyPassword(t *testing.T) {
	srv := newTestServer(&fakeAuth{
		verifyPassword: func(ctx context.Context, token, authKeyHash, ip string) error {
			assert.Equal(t, "tok", token)
			assert.Equal(t, "hash", authKeyHash)
			return nil
		},
	}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/auth/verify-password", `{"authHash":"hash"}`,
		&http.Cookie{Name: SessionCookieName, Value: "tok"})

	assert.Equal(t, http.StatusOK, w.Code)
}
