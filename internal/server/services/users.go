package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/repositories/repomanager"
)

// UserService covers account-level operations: profile, public key
// lookup for sharing, and account removal.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *FileService
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, files *FileService) *UserService {
	return &UserService{db: db, repomanager: rm, files: files}
}

// Profile returns the account record, including quota usage.
func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.CodeNotFound, "Account not found")
		}
		return nil, common.Wrap(common.CodeInternal, "Failed to load profile", err)
	}
	return user, nil
}

// PublicKeyByEmail returns the public key another user needs to wrap a
// file key for the account with the given email.
func (s *UserService) PublicKeyByEmail(ctx context.Context, email string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.E(common.CodeNotFound, "Account not found")
		}
		return "", common.Wrap(common.CodeInternal, "Failed to load public key", err)
	}
	return s.publicKey(ctx, user.ID)
}

// PublicKeyByUsername is PublicKeyByEmail keyed by username.
func (s *UserService) PublicKeyByUsername(ctx context.Context, username string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.E(common.CodeNotFound, "Account not found")
		}
		return "", common.Wrap(common.CodeInternal, "Failed to load public key", err)
	}
	return s.publicKey(ctx, user.ID)
}

func (s *UserService) publicKey(ctx context.Context, userID int64) (string, error) {
	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.E(common.CodeNotFound, "Account not found")
		}
		return "", common.Wrap(common.CodeInternal, "Failed to load public key", err)
	}
	return cred.PublicKey, nil
}

// DeleteFiles removes every file the account holds, collecting orphaned
// ciphertext objects along the way.
func (s *UserService) DeleteFiles(ctx context.Context, userID int64) error {
	return s.files.DeleteAllForUser(ctx, userID)
}

// DeleteAccount removes the account and everything attached to it. Files
// go first so ciphertext objects are collected, then the remaining rows
// fall in one transaction.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.files.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Sessions(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.repomanager.Verifications(tx).Delete(ctx, userID); err != nil {
			return err
		}
		if err := s.repomanager.Credentials(tx).Delete(ctx, userID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		return common.Wrap(common.CodeInternal, "Failed to delete account", err)
	}
	return nil
}
