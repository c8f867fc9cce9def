package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/logging"
	"github.com/clouds-team/clouds/internal/server/models"
	attemptsrepo "github.com/clouds-team/clouds/internal/server/repositories/attempts"
	credentialsrepo "github.com/clouds-team/clouds/internal/server/repositories/credentials"
	filekeysrepo "github.com/clouds-team/clouds/internal/server/repositories/filekeys"
	fileownersrepo "github.com/clouds-team/clouds/internal/server/repositories/fileowners"
	filesrepo "github.com/clouds-team/clouds/internal/server/repositories/files"
	sessionsrepo "github.com/clouds-team/clouds/internal/server/repositories/sessions"
	usersrepo "github.com/clouds-team/clouds/internal/server/repositories/users"
	verificationsrepo "github.com/clouds-team/clouds/internal/server/repositories/verifications"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// expectTx queues one successful transaction on the mock. Repositories in
// these tests are in-memory fakes, so only Begin/Commit reach the driver.
func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// --- in-memory repositories ---

type memUsersRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{users: map[int64]*models.User{}, nextID: 1}
}

func (r *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	c := *u
	c.ID = r.nextID
	r.nextID++
	r.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUsersRepo) MarkVerified(ctx context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.IsVerified = true
	return nil
}

func (r *memUsersRepo) UpdateLoginStamp(ctx context.Context, id int64, ip string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLoginDate = &at
	u.LastLoginIP = &ip
	return nil
}

func (r *memUsersRepo) AddUsedSpace(ctx context.Context, id int64, delta int64) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.UsedSpaceBytes += delta
	return nil
}

func (r *memUsersRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	return nil
}

type memCredentialsRepo struct {
	creds map[int64]*models.Credential
}

func newMemCredentialsRepo() *memCredentialsRepo {
	return &memCredentialsRepo{creds: map[int64]*models.Credential{}}
}

func (r *memCredentialsRepo) Create(ctx context.Context, c *models.Credential) error {
	cp := *c
	r.creds[c.UserID] = &cp
	return nil
}

func (r *memCredentialsRepo) GetByUserID(ctx context.Context, userID int64) (*models.Credential, error) {
	c, ok := r.creds[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *memCredentialsRepo) Replace(ctx context.Context, c *models.Credential) error {
	if _, ok := r.creds[c.UserID]; !ok {
		return common.ErrNotFound
	}
	cp := *c
	r.creds[c.UserID] = &cp
	return nil
}

func (r *memCredentialsRepo) Delete(ctx context.Context, userID int64) error {
	delete(r.creds, userID)
	return nil
}

type memVerificationsRepo struct {
	recs map[int64]*models.Verification
}

func newMemVerificationsRepo() *memVerificationsRepo {
	return &memVerificationsRepo{recs: map[int64]*models.Verification{}}
}

func (r *memVerificationsRepo) Create(ctx context.Context, v *models.Verification) error {
	cp := *v
	r.recs[v.UserID] = &cp
	return nil
}

func (r *memVerificationsRepo) GetByUserID(ctx context.Context, userID int64) (*models.Verification, error) {
	v, ok := r.recs[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *v
	return &out, nil
}

func (r *memVerificationsRepo) GetByCode(ctx context.Context, code string) (*models.Verification, error) {
	for _, v := range r.recs {
		if v.Code != nil && *v.Code == code {
			out := *v
			return &out, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memVerificationsRepo) SetCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	v, ok := r.recs[userID]
	if !ok {
		return common.ErrNotFound
	}
	v.Code = &code
	v.CodeExpiresAt = &expiresAt
	return nil
}

func (r *memVerificationsRepo) Consume(ctx context.Context, userID int64) error {
	v, ok := r.recs[userID]
	if !ok {
		return common.ErrNotFound
	}
	v.Code = nil
	v.CodeExpiresAt = nil
	v.Verified = true
	return nil
}

func (r *memVerificationsRepo) Delete(ctx context.Context, userID int64) error {
	delete(r.recs, userID)
	return nil
}

type memAttemptsRepo struct {
	rows []models.LoginAttempt
}

func newMemAttemptsRepo() *memAttemptsRepo { return &memAttemptsRepo{} }

func (r *memAttemptsRepo) Create(ctx context.Context, a *models.LoginAttempt) error {
	cp := *a
	cp.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, cp)
	return nil
}

func (r *memAttemptsRepo) CountSinceByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	n := 0
	for _, a := range r.rows {
		if a.IPAddress == ip && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memAttemptsRepo) CountSinceByEmail(ctx context.Context, email string, since time.Time) (int, error) {
	n := 0
	for _, a := range r.rows {
		if a.Email != nil && *a.Email == email && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memAttemptsRepo) HasActiveBlockByIP(ctx context.Context, ip string, now time.Time) (bool, error) {
	for _, a := range r.rows {
		if a.IPAddress == ip && a.Blocked && a.BlockExpiresAt != nil && a.BlockExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAttemptsRepo) HasActiveBlockByEmail(ctx context.Context, email string, now time.Time) (bool, error) {
	for _, a := range r.rows {
		if a.Email != nil && *a.Email == email && a.Blocked && a.BlockExpiresAt != nil && a.BlockExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

type memSessionsRepo struct {
	sessions map[string]*models.Session
	nextID   int64
}

func newMemSessionsRepo() *memSessionsRepo {
	return &memSessionsRepo{sessions: map[string]*models.Session{}, nextID: 1}
}

func (r *memSessionsRepo) Create(ctx context.Context, s *models.Session) error {
	cp := *s
	cp.ID = r.nextID
	r.nextID++
	r.sessions[s.Token] = &cp
	return nil
}

func (r *memSessionsRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s, ok := r.sessions[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (r *memSessionsRepo) Expire(ctx context.Context, token string, now time.Time) error {
	if s, ok := r.sessions[token]; ok && s.ExpiresAt.After(now) {
		s.ExpiresAt = now
	}
	return nil
}

func (r *memSessionsRepo) ExpireAllForUser(ctx context.Context, userID int64, now time.Time) error {
	for _, s := range r.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			s.ExpiresAt = now
		}
	}
	return nil
}

func (r *memSessionsRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	for tok, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, tok)
		}
	}
	return nil
}

type memFilesRepo struct {
	files  map[int64]*models.File
	nextID int64
}

func newMemFilesRepo() *memFilesRepo {
	return &memFilesRepo{files: map[int64]*models.File{}, nextID: 1}
}

func (r *memFilesRepo) Create(ctx context.Context, f *models.File) (*models.File, error) {
	c := *f
	c.ID = r.nextID
	r.nextID++
	r.files[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memFilesRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *f
	return &out, nil
}

func (r *memFilesRepo) UpdateStorageKey(ctx context.Context, id int64, key string) error {
	f, ok := r.files[id]
	if !ok {
		return common.ErrNotFound
	}
	f.StorageKey = key
	return nil
}

func (r *memFilesRepo) sortedByUser(userID int64) []models.File {
	var out []models.File
	for _, f := range r.files {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memFilesRepo) ListByUserPage(ctx context.Context, userID int64, offset, limit int) ([]models.File, error) {
	all := r.sortedByUser(userID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memFilesRepo) ListAllByUser(ctx context.Context, userID int64) ([]models.File, error) {
	return r.sortedByUser(userID), nil
}

func (r *memFilesRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	return len(r.sortedByUser(userID)), nil
}

func (r *memFilesRepo) CountByStorageKey(ctx context.Context, key string) (int, error) {
	n := 0
	for _, f := range r.files {
		if f.StorageKey == key {
			n++
		}
	}
	return n, nil
}

func (r *memFilesRepo) Delete(ctx context.Context, id int64) error {
	delete(r.files, id)
	return nil
}

type memFileKeysRepo struct {
	keys map[int64]*models.FileKey
}

func newMemFileKeysRepo() *memFileKeysRepo {
	return &memFileKeysRepo{keys: map[int64]*models.FileKey{}}
}

func (r *memFileKeysRepo) Create(ctx context.Context, k *models.FileKey) error {
	cp := *k
	r.keys[k.FileID] = &cp
	return nil
}

func (r *memFileKeysRepo) GetByFileID(ctx context.Context, fileID int64) (*models.FileKey, error) {
	k, ok := r.keys[fileID]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *k
	return &out, nil
}

func (r *memFileKeysRepo) DeleteByFileID(ctx context.Context, fileID int64) error {
	delete(r.keys, fileID)
	return nil
}

type memFileOwnersRepo struct {
	owners map[int64]*models.FileOwner
}

func newMemFileOwnersRepo() *memFileOwnersRepo {
	return &memFileOwnersRepo{owners: map[int64]*models.FileOwner{}}
}

func (r *memFileOwnersRepo) Create(ctx context.Context, o *models.FileOwner) error {
	cp := *o
	r.owners[o.FileID] = &cp
	return nil
}

func (r *memFileOwnersRepo) GetByFileID(ctx context.Context, fileID int64) (*models.FileOwner, error) {
	o, ok := r.owners[fileID]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (r *memFileOwnersRepo) DeleteByFileID(ctx context.Context, fileID int64) error {
	delete(r.owners, fileID)
	return nil
}

// --- fake repository manager ---

type memRepoManager struct {
	users         *memUsersRepo
	credentials   *memCredentialsRepo
	verifications *memVerificationsRepo
	attempts      *memAttemptsRepo
	sessions      *memSessionsRepo
	files         *memFilesRepo
	fileKeys      *memFileKeysRepo
	fileOwners    *memFileOwnersRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		users:         newMemUsersRepo(),
		credentials:   newMemCredentialsRepo(),
		verifications: newMemVerificationsRepo(),
		attempts:      newMemAttemptsRepo(),
		sessions:      newMemSessionsRepo(),
		files:         newMemFilesRepo(),
		fileKeys:      newMemFileKeysRepo(),
		fileOwners:    newMemFileOwnersRepo(),
	}
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.users }
func (m *memRepoManager) Credentials(db dbx.DBTX) credentialsrepo.Repository {
	return m.credentials
}
func (m *memRepoManager) Verifications(db dbx.DBTX) verificationsrepo.Repository {
	return m.verifications
}
func (m *memRepoManager) Attempts(db dbx.DBTX) attemptsrepo.Repository   { return m.attempts }
func (m *memRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository   { return m.sessions }
func (m *memRepoManager) Files(db dbx.DBTX) filesrepo.Repository         { return m.files }
func (m *memRepoManager) FileKeys(db dbx.DBTX) filekeysrepo.Repository   { return m.fileKeys }
func (m *memRepoManager) FileOwners(db dbx.DBTX) fileownersrepo.Repository {
	return m.fileOwners
}

// --- fake object store and mail sender ---

type memStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type memSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *memSender) SendVerification(ctx context.Context, to, code, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return nil
}

func (s *memSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
