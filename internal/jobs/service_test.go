package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	usersTable := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	jobsTable := `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT,
  budget TEXT,
  state TEXT NOT NULL DEFAULT 'open',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(usersTable).Error)
	require.NoError(t, db.Exec(jobsTable).Error)
	return db
}

type stubUserDirectory struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserDirectory) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newJobsService(t *testing.T) (Service, *gorm.DB, *stubUserDirectory) {
	t.Helper()
	db := setupJobsTestDB(t)
	dir := &stubUserDirectory{users: map[uuid.UUID]*models.User{}}
	svc, err := NewService(NewRepository(db), dir)
	require.NoError(t, err)
	return svc, db, dir
}

func addUser(dir *stubUserDirectory, role enums.Role) uuid.UUID {
	id := uuid.New()
	dir.users[id] = &models.User{ID: id, Role: role}
	return id
}

func TestPostCreatesOpenJob(t *testing.T) {
	svc, _, dir := newJobsService(t)
	clientID := addUser(dir, enums.RoleClient)

	job, err := svc.Post(context.Background(), PostInput{
		ClientID:    clientID,
		Title:       "Build an API",
		Description: "REST service with Postgres persistence.",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.JobStateOpen, job.State)
	assert.Equal(t, clientID, job.ClientID)
	assert.NotEqual(t, uuid.Nil, job.ID)
}

func TestPostRejectsFreelancer(t *testing.T) {
	svc, _, dir := newJobsService(t)
	freelancerID := addUser(dir, enums.RoleFreelancer)

	_, err := svc.Post(context.Background(), PostInput{
		ClientID:    freelancerID,
		Title:       "Build an API",
		Description: "REST service with Postgres persistence.",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestGetMissingJobNotFound(t *testing.T) {
	svc, _, _ := newJobsService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestBrowseFiltersAndPaginates(t *testing.T) {
	svc, db, dir := newJobsService(t)
	clientID := addUser(dir, enums.RoleClient)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		state := enums.JobStateOpen
		if i == 0 {
			state = enums.JobStateClosed
		}
		job := models.Job{
			ID:          uuid.New(),
			ClientID:    clientID,
			Title:       fmt.Sprintf("Job %d", i),
			Description: "desc",
			State:       state,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&job).Error)
	}

	result, err := svc.Browse(context.Background(), BrowseParams{State: "open", Limit: 3})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	require.NotEmpty(t, result.Cursor)
	for _, job := range result.Items {
		assert.Equal(t, enums.JobStateOpen, job.State)
	}

	second, err := svc.Browse(context.Background(), BrowseParams{State: "open", Limit: 3, Cursor: result.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)
}

func TestBrowseRejectsBadState(t *testing.T) {
	svc, _, _ := newJobsService(t)

	_, err := svc.Browse(context.Background(), BrowseParams{State: "archived"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
