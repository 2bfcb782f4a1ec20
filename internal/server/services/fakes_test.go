package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/dbx"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/server/models"
	"github.com/resdex/resdex/internal/server/repositories/refreshtokens"
	"github.com/resdex/resdex/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	handleErr error
	handles   []string

	byHandle    *models.User
	byHandleErr error

	ids map[string]string

	profiles  map[string]*profile.UserProfile
	getErr    error
	updateErr error
	updates   []profile.Patch
	listErr   error
	listLimit int
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "11111111-1111-1111-1111-111111111111"
	return u, nil
}

func (f *fakeUsersRepo) CreateHandle(_ context.Context, handle, _ string) error {
	if f.handleErr != nil {
		return f.handleErr
	}
	f.handles = append(f.handles, handle)
	return nil
}

func (f *fakeUsersRepo) GetByHandle(context.Context, string) (*models.User, error) {
	if f.byHandleErr != nil {
		return nil, f.byHandleErr
	}
	return f.byHandle, nil
}

func (f *fakeUsersRepo) FindIDByHandle(_ context.Context, handle string) (string, error) {
	id, ok := f.ids[handle]
	if !ok {
		return "", common.ErrorNotFound
	}
	return id, nil
}

func (f *fakeUsersRepo) GetProfile(_ context.Context, id string) (*profile.UserProfile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p.Clone(), nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id string, patch profile.Patch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, patch)
	if p, ok := f.profiles[id]; ok {
		p.Apply(patch)
	}
	return nil
}

func (f *fakeUsersRepo) ListProfiles(_ context.Context, limit int) ([]profile.UserProfile, error) {
	f.listLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]profile.UserProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error

	created []models.RefreshToken
	deleted []string
	purged  time.Time
}

func (f *fakeRefreshRepo) Create(_ context.Context, t models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeRefreshRepo) Find(context.Context, string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(context.Context, string) (int64, error) {
	return 2, f.delErr
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.purged = before
	return 1, f.delErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
