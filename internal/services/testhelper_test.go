package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/config"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db/models"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/secretbox"
)

const testTokenTTL = time.Hour

// setupTestDB creates a named shared in-memory sqlite database. The name
// is derived from the test so parallel tests stay isolated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + url.PathEscape(t.Name()) + "?mode=memory&cache=shared"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return database
}

type testEnv struct {
	db          *gorm.DB
	box         *secretbox.Box
	versions    *VersionService
	credentials *CredentialService
	sharing     *SharingService
	auth        *AuthService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	database := setupTestDB(t)
	box, err := secretbox.New("test key material")
	if err != nil {
		t.Fatalf("new secretbox: %v", err)
	}

	logger := zap.NewNop()
	collector := metrics.NewMetricsCollector()
	sharing := config.SharingConfig{DefaultExpiryHours: 1, MaxExpiryHours: 2}

	versions := NewVersionService(database, logger, collector)
	t.Cleanup(versions.Close)

	return &testEnv{
		db:          database,
		box:         box,
		versions:    versions,
		credentials: NewCredentialService(database, box, versions, logger, collector),
		sharing:     NewSharingService(database, box, sharing, logger, collector),
		auth:        NewAuthService(database, "test-jwt-secret", testTokenTTL, logger),
	}
}

func createTestUser(t *testing.T, database *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$unusedhashunusedhashunusedhashun",
		UserType:     "user",
	}
	if err := database.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestCredential(t *testing.T, env *testEnv, userID uint, username, password string) *CredentialView {
	t.Helper()

	credential, err := env.credentials.Create(context.Background(), userID, CreateCredentialInput{
		Username: username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("create test credential: %v", err)
	}
	return credential
}
