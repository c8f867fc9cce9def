package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clouds-team/clouds/internal/server/repositories/attempts"
	"github.com/clouds-team/clouds/internal/server/repositories/credentials"
	"github.com/clouds-team/clouds/internal/server/repositories/filekeys"
	"github.com/clouds-team/clouds/internal/server/repositories/fileowners"
	"github.com/clouds-team/clouds/internal/server/repositories/files"
	"github.com/clouds-team/clouds/internal/server/repositories/sessions"
	"github.com/clouds-team/clouds/internal/server/repositories/users"
	"github.com/clouds-team/clouds/internal/server/repositories/verifications"
	"github.com/pressly/goose/v3"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	m := NewPostgresRepositoryManager()
	var _ RepositoryManager = m
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}

	var _ users.Repository = m.Users(db)
	var _ credentials.Repository = m.Credentials(db)
	var _ verifications.Repository = m.Verifications(db)
	var _ attempts.Repository = m.Attempts(db)
	var _ sessions.Repository = m.Sessions(db)
	var _ files.Repository = m.Files(db)
	var _ filekeys.Repository = m.FileKeys(db)
	var _ fileowners.Repository = m.FileOwners(db)

	if m.Users(db) == nil || m.Sessions(db) == nil || m.Files(db) == nil {
		t.Fatal("factory returned nil repository")
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
