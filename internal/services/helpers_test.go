package services

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.MigrateDB(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var userSeq int64

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	user := &models.User{
		Email:     fmt.Sprintf("%s%d@example.com", role, n),
		FirstName: role,
		LastName:  fmt.Sprint(n),
		Role:      role,
		AuthType:  "local",
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	switch role {
	case models.RoleFreelancer:
		require.NoError(t, db.Create(&models.FreelancerProfile{UserID: user.ID, Availability: models.AvailabilityAvailable}).Error)
	case models.RoleClient:
		require.NoError(t, db.Create(&models.ClientProfile{UserID: user.ID}).Error)
	}
	return user
}

// requireAppError asserts err is an AppError carrying status
func requireAppError(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var appErr *response.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, status, appErr.HTTPStatus, appErr.Message)
}
