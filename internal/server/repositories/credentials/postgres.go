package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Credential) error {
	query :=
		`INSERT INTO user_credentials (user_id, salt, auth_salt, enc_salt, master_key_salt,
			auth_key_hash, encrypted_master_key, encrypted_master_key_iv, public_key,
			encrypted_private_key, encrypted_private_key_iv, encrypted_private_key_salt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 `

	_, err := r.db.ExecContext(ctx, query,
		c.UserID, c.Salt, c.AuthSalt, c.EncSalt, c.MasterKeySalt,
		c.AuthKeyHash, c.EncryptedMasterKey, c.EncryptedMasterKeyIV, c.PublicKey,
		c.EncryptedPrivateKey, c.EncryptedPrivateKeyIV, c.EncryptedPrivateKeySalt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.Credential, error) {
	query :=
		`SELECT user_id, salt, auth_salt, enc_salt, master_key_salt,
			auth_key_hash, encrypted_master_key, encrypted_master_key_iv, public_key,
			encrypted_private_key, encrypted_private_key_iv, encrypted_private_key_salt
		 FROM user_credentials WHERE user_id = $1
		 `

	c := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID, &c.Salt, &c.AuthSalt, &c.EncSalt, &c.MasterKeySalt,
		&c.AuthKeyHash, &c.EncryptedMasterKey, &c.EncryptedMasterKeyIV, &c.PublicKey,
		&c.EncryptedPrivateKey, &c.EncryptedPrivateKeyIV, &c.EncryptedPrivateKeySalt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Replace(ctx context.Context, c *models.Credential) error {
	query :=
		`UPDATE user_credentials
		 SET salt = $2, auth_salt = $3, enc_salt = $4, master_key_salt = $5,
			auth_key_hash = $6, encrypted_master_key = $7, encrypted_master_key_iv = $8,
			public_key = $9, encrypted_private_key = $10, encrypted_private_key_iv = $11,
			encrypted_private_key_salt = $12
		 WHERE user_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		c.UserID, c.Salt, c.AuthSalt, c.EncSalt, c.MasterKeySalt,
		c.AuthKeyHash, c.EncryptedMasterKey, c.EncryptedMasterKeyIV, c.PublicKey,
		c.EncryptedPrivateKey, c.EncryptedPrivateKeyIV, c.EncryptedPrivateKeySalt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	query := `DELETE FROM user_credentials WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
