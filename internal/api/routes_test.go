package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/config"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/secretbox"
)

type testServer struct {
	router   *Router
	versions *services.VersionService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + url.PathEscape(t.Name()) + "?mode=memory&cache=shared"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database))
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	box, err := secretbox.New("test key material")
	require.NoError(t, err)

	logger := zap.NewNop()
	collector := metrics.NewMetricsCollector()
	sharing := config.SharingConfig{DefaultExpiryHours: 1, MaxExpiryHours: 2}

	authService := services.NewAuthService(database, "test-jwt-secret", time.Hour, logger)
	versionService := services.NewVersionService(database, logger, collector)
	credentialService := services.NewCredentialService(database, box, versionService, logger, collector)
	sharingService := services.NewSharingService(database, box, sharing, logger, collector)

	router := NewRouter(logger, collector, authService, credentialService, versionService, sharingService)
	router.SetupRoutes()

	return &testServer{router: router, versions: versionService}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	ts.router.Engine().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func (ts *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	resp := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "pw",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decodeBody(t, resp)["token"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "up", decodeBody(t, resp)["status"])
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/credentials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.do(t, http.MethodGet, "/credentials", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerAndLogin(t, "alice@example.com")

	resp := ts.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "pw",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestCredentialLifecycleOverHTTP(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.registerAndLogin(t, "alice@example.com")

	// Create; the 201 body carries no secret.
	resp := ts.do(t, http.MethodPost, "/credentials", token, map[string]interface{}{
		"username": "db", "password": "secret1", "tags": "prod",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeBody(t, resp)["credential"].(map[string]interface{})
	assert.NotContains(t, created, "password")

	// List returns the decrypted secret.
	resp = ts.do(t, http.MethodGet, "/credentials", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	credentials := decodeBody(t, resp)["credentials"].([]interface{})
	require.Len(t, credentials, 1)
	assert.Equal(t, "secret1", credentials[0].(map[string]interface{})["password"])

	// Tag substring lookup.
	resp = ts.do(t, http.MethodGet, "/credentials/byTag/pro", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeBody(t, resp)["credentials"].([]interface{}), 1)

	// Update the secret, then read back the new value.
	resp = ts.do(t, http.MethodPut, "/credentials/1", token, map[string]interface{}{
		"password": "secret2",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.do(t, http.MethodGet, "/credentials/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	credential := decodeBody(t, resp)["credential"].(map[string]interface{})
	assert.Equal(t, "secret2", credential["password"])

	// Drain the snapshot queue, then the history shows one version.
	ts.versions.Close()
	resp = ts.do(t, http.MethodGet, "/credentialVersions/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])

	resp = ts.do(t, http.MethodGet, "/credentialVersions/1/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	// Delete and confirm it is gone.
	resp = ts.do(t, http.MethodDelete, "/credentials/1", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/credentials/1", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSharingOverHTTP(t *testing.T) {
	ts := setupTestServer(t)
	ownerToken := ts.registerAndLogin(t, "owner@example.com")
	recipientToken := ts.registerAndLogin(t, "recipient@example.com")

	resp := ts.do(t, http.MethodPost, "/credentials", ownerToken, map[string]interface{}{
		"username": "db", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	// Owner is user 1, recipient is user 2, credential is id 1.
	resp = ts.do(t, http.MethodPost, "/sharedCredentials/share", ownerToken, map[string]interface{}{
		"credential_id": 1, "shared_with_user_id": 2, "can_edit": true, "expiry_hours": 1,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	grant := decodeBody(t, resp)["sharedCredential"].(map[string]interface{})
	grantID := int(grant["id"].(float64))

	// Self-share rejected.
	resp = ts.do(t, http.MethodPost, "/sharedCredentials/share", ownerToken, map[string]interface{}{
		"credential_id": 1, "shared_with_user_id": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Out-of-range expiry rejected.
	resp = ts.do(t, http.MethodPost, "/sharedCredentials/share", ownerToken, map[string]interface{}{
		"credential_id": 1, "shared_with_user_id": 2, "expiry_hours": 3,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Recipient sees the decrypted secret.
	resp = ts.do(t, http.MethodGet, "/sharedCredentials/received", recipientToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	received := decodeBody(t, resp)
	require.Equal(t, float64(1), received["count"])
	row := received["sharedCredentials"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "secret1", row["credential"].(map[string]interface{})["password"])
	assert.Equal(t, "owner@example.com", row["owner_email"])

	// Owner's summary listing excludes the secret.
	resp = ts.do(t, http.MethodGet, "/sharedCredentials/shared", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	granted := decodeBody(t, resp)["sharedCredentials"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, granted, "credential")
	assert.Equal(t, "recipient@example.com", granted["shared_with_email"])

	// Only the owner can revoke.
	resp = ts.do(t, http.MethodDelete, "/sharedCredentials/revoke/1", recipientToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, http.MethodDelete, "/sharedCredentials/revoke/1", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.do(t, http.MethodGet, "/sharedCredentials/received/"+strconv.Itoa(grantID), recipientToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
