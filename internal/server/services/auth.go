package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/logging"
	"github.com/clouds-team/clouds/internal/server/auth"
	sc "github.com/clouds-team/clouds/internal/server/config"
	"github.com/clouds-team/clouds/internal/server/email"
	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/repositories/repomanager"
	"github.com/clouds-team/clouds/internal/shared"
)

// DefaultSpaceLimitBytes is the storage quota for new accounts (100 MiB).
const DefaultSpaceLimitBytes = 104857600

// AuthService orchestrates signup, verification, zero-knowledge login and
// password rotation. The service never sees a password: clients derive
// keys locally and the server only stores salts, wrapped keys and the
// auth hash, which is compared in constant time.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	limiter     *RateLimiter
	sender      email.Sender
	now         func() time.Time
}

func NewAuthService(db *sql.DB, rm repomanager.RepositoryManager, cfg *sc.Config,
	logger logging.Logger, limiter *RateLimiter, sender email.Sender) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: rm,
		config:      cfg,
		logger:      logger,
		limiter:     limiter,
		sender:      sender,
		now:         time.Now,
	}
}

// SignupRequest carries the account fields plus the complete client-side
// credential record produced during registration.
type SignupRequest struct {
	Username                string
	Name                    string
	Surname                 string
	Email                   string
	SignupIP                string
	Salt                    string
	AuthSalt                string
	EncSalt                 string
	MasterKeySalt           string
	AuthKeyHash             string
	EncryptedMasterKey      string
	EncryptedMasterKeyIV    string
	PublicKey               string
	EncryptedPrivateKey     string
	EncryptedPrivateKeyIV   string
	EncryptedPrivateKeySalt string
}

// Signup creates the account, its credential record and a pending
// verification in one transaction, then sends the verification mail.
// Mail delivery is fire-and-forget; failures are logged only.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	if req.Email == "" || req.Username == "" || req.AuthKeyHash == "" || req.Salt == "" || req.AuthSalt == "" {
		return nil, common.E(common.CodeValidation, "Missing required registration fields")
	}

	userRepo := s.repomanager.Users(s.db)

	if _, err := userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, common.E(common.CodeConflict, "Email already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Wrap(common.CodeInternal, "Registration failed", err)
	}

	if _, err := userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, common.E(common.CodeConflict, "Username already taken")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Wrap(common.CodeInternal, "Registration failed", err)
	}

	code, err := shared.MakeRandURLToken(16)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Registration failed", err)
	}

	now := s.now()
	codeExpiry := now.Add(s.config.VerificationValidityDuration)

	var user *models.User

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			Username:         req.Username,
			Name:             req.Name,
			Surname:          req.Surname,
			Email:            req.Email,
			RegistrationDate: now,
			LimitSpaceBytes:  DefaultSpaceLimitBytes,
			SignupIP:         req.SignupIP,
		})
		if err != nil {
			return err
		}

		err = s.repomanager.Credentials(tx).Create(ctx, &models.Credential{
			UserID:                  user.ID,
			Salt:                    req.Salt,
			AuthSalt:                req.AuthSalt,
			EncSalt:                 req.EncSalt,
			MasterKeySalt:           req.MasterKeySalt,
			AuthKeyHash:             req.AuthKeyHash,
			EncryptedMasterKey:      req.EncryptedMasterKey,
			EncryptedMasterKeyIV:    req.EncryptedMasterKeyIV,
			PublicKey:               req.PublicKey,
			EncryptedPrivateKey:     req.EncryptedPrivateKey,
			EncryptedPrivateKeyIV:   req.EncryptedPrivateKeyIV,
			EncryptedPrivateKeySalt: req.EncryptedPrivateKeySalt,
		})
		if err != nil {
			return err
		}

		return s.repomanager.Verifications(tx).Create(ctx, &models.Verification{
			UserID:        user.ID,
			Code:          &code,
			CodeExpiresAt: &codeExpiry,
		})
	})
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Registration failed", err)
	}

	s.sendVerificationMail(user.Email, code)

	return user, nil
}

func (s *AuthService) sendVerificationMail(to, code string) {
	token, err := auth.GenerateLinkToken(code, []byte(s.config.SecretKey), s.config.VerificationValidityDuration)
	if err != nil {
		s.logger.Error(context.Background(), "error signing verification link", "error", err)
		return
	}
	link := fmt.Sprintf("%s/api/v1/auth/confirm/%s", s.config.BaseURL, token)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sender.SendVerification(ctx, to, code, link); err != nil {
			s.logger.Error(ctx, "error sending verification email", "to", to, "error", err)
		}
	}()
}

// Verify confirms the account identified by email with the given code.
func (s *AuthService) Verify(ctx context.Context, emailAddr, code string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeNotFound, "Account not found")
		}
		return common.Wrap(common.CodeInternal, "Verification failed", err)
	}

	v, err := s.repomanager.Verifications(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeInvalidCredentials, "Invalid or expired verification code")
		}
		return common.Wrap(common.CodeInternal, "Verification failed", err)
	}

	return s.consumeVerification(ctx, v, code)
}

// VerifyByCode confirms whichever account the code was issued to.
func (s *AuthService) VerifyByCode(ctx context.Context, code string) error {
	if code == "" {
		return common.E(common.CodeInvalidCredentials, "Invalid or expired verification code")
	}

	v, err := s.repomanager.Verifications(s.db).GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeInvalidCredentials, "Invalid or expired verification code")
		}
		return common.Wrap(common.CodeInternal, "Verification failed", err)
	}

	return s.consumeVerification(ctx, v, code)
}

// ConfirmLink validates a signed verification link token and consumes the
// embedded code.
func (s *AuthService) ConfirmLink(ctx context.Context, token string) error {
	code, err := auth.GetCodeFromLinkToken(token, []byte(s.config.SecretKey))
	if err != nil {
		return common.E(common.CodeInvalidCredentials, "Invalid or expired verification link")
	}
	return s.VerifyByCode(ctx, code)
}

// consumeVerification checks the code against the stored record and, on
// match, clears it and marks the user verified in one transaction. The
// code is single-use: a consumed or expired code never matches again.
func (s *AuthService) consumeVerification(ctx context.Context, v *models.Verification, code string) error {
	if v.Verified {
		return common.E(common.CodeConflict, "Account already verified")
	}
	if v.Code == nil || v.CodeExpiresAt == nil || *v.Code != code || !v.CodeExpiresAt.After(s.now()) {
		return common.E(common.CodeInvalidCredentials, "Invalid or expired verification code")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Verifications(tx).Consume(ctx, v.UserID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).MarkVerified(ctx, v.UserID)
	})
	if err != nil {
		return common.Wrap(common.CodeInternal, "Verification failed", err)
	}
	return nil
}

// ResendVerification issues a fresh code for an unverified account and
// mails it out.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeNotFound, "Account not found")
		}
		return common.Wrap(common.CodeInternal, "Resend failed", err)
	}
	if user.IsVerified {
		return common.E(common.CodeConflict, "Account already verified")
	}

	code, err := shared.MakeRandURLToken(16)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Resend failed", err)
	}

	expiry := s.now().Add(s.config.VerificationValidityDuration)
	if err := s.repomanager.Verifications(s.db).SetCode(ctx, user.ID, code, expiry); err != nil {
		return common.Wrap(common.CodeInternal, "Resend failed", err)
	}

	s.sendVerificationMail(user.Email, code)
	return nil
}

// InitLogin returns the salts the client needs to derive its keys. For
// unknown emails it records a failed attempt and answers with freshly
// generated random salts of identical shape, so the response never
// reveals whether the account exists.
func (s *AuthService) InitLogin(ctx context.Context, emailAddr, ip string) (salt, authSalt string, err error) {
	blocked, err := s.limiter.IsBlocked(ctx, emailAddr, ip)
	if err != nil {
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}
	if blocked {
		return "", "", common.E(common.CodeThrottled, common.MsgThrottled)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.fakeSalts(ctx, emailAddr, ip)
		}
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.fakeSalts(ctx, emailAddr, ip)
		}
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}

	return cred.Salt, cred.AuthSalt, nil
}

func (s *AuthService) fakeSalts(ctx context.Context, emailAddr, ip string) (string, string, error) {
	if err := s.limiter.RecordFailedAttempt(ctx, emailAddr, ip); err != nil {
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}
	salt, err := shared.MakeRandHexString(16)
	if err != nil {
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}
	authSalt, err := shared.MakeRandHexString(16)
	if err != nil {
		return "", "", common.Wrap(common.CodeInternal, "Login failed", err)
	}
	return salt, authSalt, nil
}

// AuthRequest is the second phase of login: the client-derived auth hash
// plus the connection attributes recorded on the session.
type AuthRequest struct {
	Email       string
	AuthKeyHash string
	IP          string
	UserAgent   string
}

// LoginResult carries the session token and the wrapped key material the
// client needs to unlock its vault locally.
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	User       *models.User
	Credential *models.Credential
}

// Authenticate completes login. All credential failures record a failed
// attempt and surface the same generic error; an unverified account is
// reported distinctly and does not count as a failed attempt.
func (s *AuthService) Authenticate(ctx context.Context, req *AuthRequest) (*LoginResult, error) {
	blocked, err := s.limiter.IsBlocked(ctx, req.Email, req.IP)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Login failed", err)
	}
	if blocked {
		return nil, common.E(common.CodeThrottled, common.MsgThrottled)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, s.failedLogin(ctx, req.Email, req.IP)
		}
		return nil, common.Wrap(common.CodeInternal, "Login failed", err)
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, s.failedLogin(ctx, req.Email, req.IP)
		}
		return nil, common.Wrap(common.CodeInternal, "Login failed", err)
	}

	if subtle.ConstantTimeCompare([]byte(cred.AuthKeyHash), []byte(req.AuthKeyHash)) != 1 {
		return nil, s.failedLogin(ctx, req.Email, req.IP)
	}

	if !user.IsVerified {
		return nil, common.E(common.CodeUnauthorized, common.MsgUnverified)
	}

	token, err := shared.MakeRandURLToken(16)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Login failed", err)
	}

	now := s.now()
	expiresAt := now.Add(s.config.SessionValidityDuration)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Sessions(tx).Create(ctx, &models.Session{
			UserID:    user.ID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: expiresAt,
			IPAddress: req.IP,
			UserAgent: req.UserAgent,
		}); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdateLoginStamp(ctx, user.ID, req.IP, now)
	})
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Login failed", err)
	}

	return &LoginResult{
		Token:      token,
		ExpiresAt:  expiresAt,
		User:       user,
		Credential: cred,
	}, nil
}

func (s *AuthService) failedLogin(ctx context.Context, emailAddr, ip string) error {
	if err := s.limiter.RecordFailedAttempt(ctx, emailAddr, ip); err != nil {
		return common.Wrap(common.CodeInternal, "Login failed", err)
	}
	return common.E(common.CodeInvalidCredentials, common.MsgInvalidCredentials)
}

// VerifySession resolves an opaque token to a user ID. A session is valid
// only while expires_at lies strictly in the future; unknown and expired
// tokens are indistinguishable to the caller.
func (s *AuthService) VerifySession(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}

	sess, err := s.repomanager.Sessions(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, common.Wrap(common.CodeInternal, "Session check failed", err)
	}

	if !sess.Active(s.now()) {
		return 0, false, nil
	}
	return sess.UserID, true, nil
}

// Logout invalidates the session by forcing its expiry to now. Unknown
// tokens are ignored, so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repomanager.Sessions(s.db).Expire(ctx, token, s.now()); err != nil {
		return common.Wrap(common.CodeInternal, "Logout failed", err)
	}
	return nil
}

// VerifyPassword re-proves the current auth hash for an active session,
// for use before sensitive operations. A mismatch counts as a failed
// login attempt.
func (s *AuthService) VerifyPassword(ctx context.Context, token, authKeyHash, ip string) error {
	userID, ok, err := s.VerifySession(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return common.E(common.CodeUnauthorized, "Authentication required")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Password check failed", err)
	}

	blocked, err := s.limiter.IsBlocked(ctx, user.Email, ip)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Password check failed", err)
	}
	if blocked {
		return common.E(common.CodeThrottled, common.MsgThrottled)
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, userID)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Password check failed", err)
	}

	if subtle.ConstantTimeCompare([]byte(cred.AuthKeyHash), []byte(authKeyHash)) != 1 {
		return s.failedLogin(ctx, user.Email, ip)
	}
	return nil
}

// UpdatePasswordRequest carries the session proof and the complete
// replacement credential record produced by the client.
type UpdatePasswordRequest struct {
	Token              string
	CurrentAuthKeyHash string
	IP                 string
	NewCredential      *models.Credential
}

// UpdatePassword swaps the whole credential record after re-proving the
// current auth hash, then invalidates every session of the account so a
// fresh login is forced.
func (s *AuthService) UpdatePassword(ctx context.Context, req *UpdatePasswordRequest) error {
	userID, ok, err := s.VerifySession(ctx, req.Token)
	if err != nil {
		return err
	}
	if !ok {
		return common.E(common.CodeUnauthorized, "Authentication required")
	}

	if err := s.VerifyPassword(ctx, req.Token, req.CurrentAuthKeyHash, req.IP); err != nil {
		return err
	}

	cred := req.NewCredential
	if cred == nil || cred.AuthKeyHash == "" || cred.Salt == "" || cred.AuthSalt == "" {
		return common.E(common.CodeValidation, "Missing required credential fields")
	}
	cred.UserID = userID

	// fields the client does not re-derive carry over from the old record
	old, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, userID)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Password update failed", err)
	}
	if cred.PublicKey == "" {
		cred.PublicKey = old.PublicKey
	}
	if cred.EncryptedPrivateKey == "" {
		cred.EncryptedPrivateKey = old.EncryptedPrivateKey
		cred.EncryptedPrivateKeyIV = old.EncryptedPrivateKeyIV
		cred.EncryptedPrivateKeySalt = old.EncryptedPrivateKeySalt
	}
	if cred.MasterKeySalt == "" {
		cred.MasterKeySalt = old.MasterKeySalt
	}

	now := s.now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Credentials(tx).Replace(ctx, cred); err != nil {
			return err
		}
		return s.repomanager.Sessions(tx).ExpireAllForUser(ctx, userID, now)
	})
	if err != nil {
		return common.Wrap(common.CodeInternal, "Password update failed", err)
	}
	return nil
}
