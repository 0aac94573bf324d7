package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/repository"
	"github.com/vasapolrittideah/task-manager-api/shared/database"
)

func newTestDB(t *testing.T) (*gorm.DB, *zerolog.Logger) {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewSQLiteDatabase("file:"+uuid.NewString()+"?mode=memory&cache=shared", &logger)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db, &logger
}

func newTestRepositories(t *testing.T) (repository.UserRepository, repository.TaskRepository) {
	t.Helper()

	db, logger := newTestDB(t)
	return repository.NewUserGormRepository(logger, db), repository.NewTaskGormRepository(logger, db)
}

type fakeOTPSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func newFakeOTPSender() *fakeOTPSender {
	return &fakeOTPSender{codes: make(map[string]string)}
}

func (s *fakeOTPSender) SendOTP(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.codes[email] = code
	return nil
}

func (s *fakeOTPSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

var errSMTPDown = errors.New("smtp down")
