package repomanager

import (
	"context"
	"database/sql"

	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/server/repositories/attempts"
	"github.com/clouds-team/clouds/internal/server/repositories/credentials"
	"github.com/clouds-team/clouds/internal/server/repositories/filekeys"
	"github.com/clouds-team/clouds/internal/server/repositories/fileowners"
	"github.com/clouds-team/clouds/internal/server/repositories/files"
	"github.com/clouds-team/clouds/internal/server/repositories/sessions"
	"github.com/clouds-team/clouds/internal/server/repositories/users"
	"github.com/clouds-team/clouds/internal/server/repositories/verifications"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Verifications(db dbx.DBTX) verifications.Repository
	Attempts(db dbx.DBTX) attempts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Files(db dbx.DBTX) files.Repository
	FileKeys(db dbx.DBTX) filekeys.Repository
	FileOwners(db dbx.DBTX) fileowners.Repository
}
