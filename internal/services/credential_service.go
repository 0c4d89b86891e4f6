package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db/models"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/secretbox"
)

// CredentialService owns the credential lifecycle: encrypt on write,
// decrypt on read, snapshot history on mutation. Every operation is scoped
// by the owning user; a credential belonging to someone else is
// indistinguishable from one that does not exist.
type CredentialService struct {
	db       *gorm.DB
	box      *secretbox.Box
	versions *VersionService
	logger   *zap.Logger
	metrics  *metrics.MetricsCollector
}

func NewCredentialService(db *gorm.DB, box *secretbox.Box, versions *VersionService, logger *zap.Logger, metricsCollector *metrics.MetricsCollector) *CredentialService {
	return &CredentialService{
		db:       db,
		box:      box,
		versions: versions,
		logger:   logger.With(zap.String("service", "credential_service")),
		metrics:  metricsCollector,
	}
}

// CredentialView is a credential with its secret decrypted, the shape
// every read path returns.
type CredentialView struct {
	ID        uint       `json:"id"`
	UserID    uint       `json:"user_id"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Notes     string     `json:"notes"`
	Tags      string     `json:"tags"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateCredentialInput struct {
	Username  string
	Password  string
	Notes     string
	Tags      string
	ExpiresAt *time.Time
}

// UpdateCredentialInput carries a partial update: nil means "leave the
// field untouched".
type UpdateCredentialInput struct {
	Username  *string
	Password  *string
	Notes     *string
	Tags      *string
	ExpiresAt *time.Time
}

func (cs *CredentialService) Create(ctx context.Context, userID uint, input CreateCredentialInput) (*CredentialView, error) {
	start := time.Now()

	encrypted, err := cs.box.Encrypt(input.Password)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}

	credential := &models.Credential{
		UserID:            userID,
		Username:          input.Username,
		EncryptedPassword: encrypted,
		Notes:             input.Notes,
		Tags:              input.Tags,
		ExpiresAt:         input.ExpiresAt,
	}
	if err := cs.db.WithContext(ctx).Create(credential).Error; err != nil {
		return nil, err
	}

	cs.metrics.IncrementCounter("credentials.created")
	cs.metrics.ObserveLatency("credentials.create", time.Since(start))
	cs.logger.Info("Credential created",
		zap.Uint("credential_id", credential.ID),
		zap.Uint("user_id", userID))

	return cs.toView(credential)
}

// List returns all of the user's credentials, newest first, secrets
// decrypted.
func (cs *CredentialService) List(ctx context.Context, userID uint) ([]CredentialView, error) {
	var credentials []models.Credential
	if err := cs.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&credentials).Error; err != nil {
		return nil, err
	}
	return cs.toViews(credentials)
}

// ListByTag filters by substring containment on the tags column, not
// exact match.
func (cs *CredentialService) ListByTag(ctx context.Context, userID uint, tag string) ([]CredentialView, error) {
	var credentials []models.Credential
	if err := cs.db.WithContext(ctx).
		Where("user_id = ? AND tags LIKE ?", userID, "%"+tag+"%").
		Order("created_at DESC").
		Find(&credentials).Error; err != nil {
		return nil, err
	}
	return cs.toViews(credentials)
}

func (cs *CredentialService) GetByID(ctx context.Context, userID, credentialID uint) (*CredentialView, error) {
	credential, err := cs.findOwned(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}
	return cs.toView(credential)
}

// Update applies the supplied fields only. The pre-update
// ciphertext/notes/tags triplet is captured first; if any of the three
// actually changed value the triplet is queued as a history snapshot.
// The caller gets the updated credential back without waiting on the
// snapshot.
func (cs *CredentialService) Update(ctx context.Context, userID, credentialID uint, input UpdateCredentialInput) (*CredentialView, error) {
	start := time.Now()

	credential, err := cs.findOwned(ctx, userID, credentialID)
	if err != nil {
		return nil, err
	}

	previous := SnapshotInput{
		EncryptedPassword: credential.EncryptedPassword,
		Notes:             credential.Notes,
		Tags:              credential.Tags,
	}

	updates := map[string]interface{}{}
	if input.Username != nil {
		updates["username"] = *input.Username
	}
	secretChanged := false
	if input.Password != nil {
		// Fresh IVs make ciphertext comparison useless; compare the
		// supplied plaintext against the stored secret instead.
		current, err := cs.box.Decrypt(credential.EncryptedPassword)
		secretChanged = err != nil || current != *input.Password
		encrypted, err := cs.box.Encrypt(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("encrypt secret: %w", err)
		}
		updates["encrypted_password"] = encrypted
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.Tags != nil {
		updates["tags"] = *input.Tags
	}
	if input.ExpiresAt != nil {
		updates["expires_at"] = *input.ExpiresAt
	}

	if len(updates) > 0 {
		if err := cs.db.WithContext(ctx).Model(credential).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	changed := secretChanged ||
		(input.Notes != nil && *input.Notes != previous.Notes) ||
		(input.Tags != nil && *input.Tags != previous.Tags)
	if changed {
		cs.versions.SubmitSnapshot(credential.ID, previous)
	}

	cs.metrics.IncrementCounter("credentials.updated")
	cs.metrics.ObserveLatency("credentials.update", time.Since(start))
	cs.logger.Info("Credential updated",
		zap.Uint("credential_id", credential.ID),
		zap.Uint("user_id", userID),
		zap.Bool("snapshot_queued", changed))

	return cs.toView(credential)
}

// Delete removes the credential together with its version history and any
// outstanding shares. Returns ErrNotFound when the credential does not
// exist under this owner.
func (cs *CredentialService) Delete(ctx context.Context, userID, credentialID uint) error {
	credential, err := cs.findOwned(ctx, userID, credentialID)
	if err != nil {
		return err
	}

	if err := cs.versions.PurgeAll(ctx, credential.ID); err != nil {
		return fmt.Errorf("purge versions: %w", err)
	}
	if err := cs.db.WithContext(ctx).
		Where("credential_id = ?", credential.ID).
		Delete(&models.SharedCredential{}).Error; err != nil {
		return fmt.Errorf("cascade shares: %w", err)
	}
	if err := cs.db.WithContext(ctx).Delete(credential).Error; err != nil {
		return err
	}

	cs.metrics.IncrementCounter("credentials.deleted")
	cs.logger.Info("Credential deleted",
		zap.Uint("credential_id", credential.ID),
		zap.Uint("user_id", userID))
	return nil
}

func (cs *CredentialService) findOwned(ctx context.Context, userID, credentialID uint) (*models.Credential, error) {
	var credential models.Credential
	err := cs.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", credentialID, userID).
		First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

func (cs *CredentialService) toView(credential *models.Credential) (*CredentialView, error) {
	password, err := cs.box.Decrypt(credential.EncryptedPassword)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential %d: %w", credential.ID, err)
	}
	return &CredentialView{
		ID:        credential.ID,
		UserID:    credential.UserID,
		Username:  credential.Username,
		Password:  password,
		Notes:     credential.Notes,
		Tags:      credential.Tags,
		ExpiresAt: credential.ExpiresAt,
		CreatedAt: credential.CreatedAt,
		UpdatedAt: credential.UpdatedAt,
	}, nil
}

func (cs *CredentialService) toViews(credentials []models.Credential) ([]CredentialView, error) {
	views := make([]CredentialView, 0, len(credentials))
	for i := range credentials {
		view, err := cs.toView(&credentials[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}
