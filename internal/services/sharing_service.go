package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/config"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db/models"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/secretbox"
)

// DecryptionFailedPlaceholder replaces the secret on a shared row whose
// at-rest token cannot be opened. One corrupted row must never fail a
// whole listing.
const DecryptionFailedPlaceholder = "[Decryption Error]"

// SharingService grants, renews, revokes and lazily expires cross-user
// access to credentials. Expired grants are swept when a read path
// encounters them; there is no background timer.
type SharingService struct {
	db      *gorm.DB
	box     *secretbox.Box
	sharing config.SharingConfig
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
}

func NewSharingService(db *gorm.DB, box *secretbox.Box, sharing config.SharingConfig, logger *zap.Logger, metricsCollector *metrics.MetricsCollector) *SharingService {
	return &SharingService{
		db:      db,
		box:     box,
		sharing: sharing,
		logger:  logger.With(zap.String("service", "sharing_service")),
		metrics: metricsCollector,
	}
}

// SharedSecret is the recipient-facing view of the shared credential's
// current state, decrypted at read time.
type SharedSecret struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Notes     string     `json:"notes"`
	Tags      string     `json:"tags"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ReceivedShare is one live grant as seen by its recipient.
type ReceivedShare struct {
	ID               uint         `json:"id"`
	CredentialID     uint         `json:"credential_id"`
	OwnerID          uint         `json:"owner_id"`
	OwnerEmail       string       `json:"owner_email"`
	SharedWithUserID uint         `json:"shared_with_user_id"`
	CanEdit          bool         `json:"can_edit"`
	CreatedAt        time.Time    `json:"created_at"`
	ExpiresAt        time.Time    `json:"expires_at"`
	Credential       SharedSecret `json:"credential"`
}

// GrantSummary is one live grant as seen by its owner. It carries no
// secret: the owner already reads the credential through the store.
type GrantSummary struct {
	ID               uint      `json:"id"`
	CredentialID     uint      `json:"credential_id"`
	OwnerID          uint      `json:"owner_id"`
	SharedWithUserID uint      `json:"shared_with_user_id"`
	SharedWithEmail  string    `json:"shared_with_email"`
	CanEdit          bool      `json:"can_edit"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// A grant checked at exactly its expiry instant is still live; expiry is
// strictly past the boundary.
func isExpired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}

func (ss *SharingService) expiryTime(expiryHours float64) time.Time {
	return time.Now().Add(time.Duration(expiryHours * float64(time.Hour)))
}

// Share grants or renews access to a credential. A still-live grant for
// the same (credential, recipient) pair is renewed in place: edit flag
// overwritten, expiry pushed forward from now, creation timestamp reset.
// An expired leftover is deleted and replaced by a fresh grant.
func (ss *SharingService) Share(ctx context.Context, ownerID, credentialID, recipientID uint, canEdit bool, expiryHours *float64) (*models.SharedCredential, error) {
	hours := ss.sharing.DefaultExpiryHours
	if expiryHours != nil {
		hours = *expiryHours
	}
	if hours < 0 || hours > ss.sharing.MaxExpiryHours {
		return nil, fmt.Errorf("%w: expiry hours must be between 0 and %g", ErrValidation, ss.sharing.MaxExpiryHours)
	}

	var credential models.Credential
	err := ss.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", credentialID, ownerID).
		First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: credential not found or not owned by you", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	if ownerID == recipientID {
		return nil, fmt.Errorf("%w: cannot share a credential with yourself", ErrValidation)
	}

	var recipient models.User
	err = ss.db.WithContext(ctx).First(&recipient, recipientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user to share with not found", ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	expiresAt := ss.expiryTime(hours)

	var existing models.SharedCredential
	err = ss.db.WithContext(ctx).
		Where("credential_id = ? AND shared_with_user_id = ?", credentialID, recipientID).
		First(&existing).Error
	switch {
	case err == nil && !isExpired(existing.ExpiresAt):
		// Renewal, not a new row: the recipient keeps the same grant id.
		updates := map[string]interface{}{
			"can_edit":   canEdit,
			"expires_at": expiresAt,
			"created_at": time.Now(),
		}
		if err := ss.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		ss.metrics.IncrementCounter("shares.renewed")
		ss.logger.Info("Share renewed",
			zap.Uint("share_id", existing.ID),
			zap.Uint("credential_id", credentialID),
			zap.Uint("recipient_id", recipientID))
		return &existing, nil
	case err == nil:
		// Expired leftover; clear it before creating the replacement.
		if err := ss.db.WithContext(ctx).Delete(&existing).Error; err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	grant := &models.SharedCredential{
		CredentialID:     credentialID,
		OwnerID:          ownerID,
		SharedWithUserID: recipientID,
		CanEdit:          canEdit,
		ExpiresAt:        expiresAt,
	}
	if err := ss.db.WithContext(ctx).Create(grant).Error; err != nil {
		// Two concurrent shares for the same pair both passed the
		// existence check; the unique index lets only one row in.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: share already exists for this recipient", ErrConflict)
		}
		return nil, err
	}

	ss.metrics.IncrementCounter("shares.created")
	ss.logger.Info("Share created",
		zap.Uint("share_id", grant.ID),
		zap.Uint("credential_id", credentialID),
		zap.Uint("recipient_id", recipientID),
		zap.Time("expires_at", expiresAt))
	return grant, nil
}

// ListReceived returns every live grant where the user is the recipient,
// newest first, secrets decrypted from the credential's current state.
// Expired grants and grants whose credential is gone are swept in one
// batch after the listing is built.
func (ss *SharingService) ListReceived(ctx context.Context, userID uint) ([]ReceivedShare, error) {
	var shares []models.SharedCredential
	if err := ss.db.WithContext(ctx).
		Where("shared_with_user_id = ?", userID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, err
	}

	valid := make([]ReceivedShare, 0, len(shares))
	var sweep []uint

	for _, share := range shares {
		if isExpired(share.ExpiresAt) {
			sweep = append(sweep, share.ID)
			continue
		}

		var credential models.Credential
		err := ss.db.WithContext(ctx).First(&credential, share.CredentialID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sweep = append(sweep, share.ID)
			continue
		}
		if err != nil {
			return nil, err
		}

		valid = append(valid, ss.receivedView(ctx, share, credential))
	}

	if err := ss.sweepGrants(ctx, sweep); err != nil {
		return nil, err
	}
	return valid, nil
}

// GetReceivedByID returns one grant addressed to the user. An expired or
// orphaned grant is deleted on the spot and reported as not found.
func (ss *SharingService) GetReceivedByID(ctx context.Context, userID, shareID uint) (*ReceivedShare, error) {
	var share models.SharedCredential
	err := ss.db.WithContext(ctx).
		Where("id = ? AND shared_with_user_id = ?", shareID, userID).
		First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if isExpired(share.ExpiresAt) {
		if err := ss.sweepGrants(ctx, []uint{share.ID}); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	var credential models.Credential
	err = ss.db.WithContext(ctx).First(&credential, share.CredentialID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := ss.sweepGrants(ctx, []uint{share.ID}); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	view := ss.receivedView(ctx, share, credential)
	return &view, nil
}

// ListGranted returns every live grant the user has handed out, newest
// first, with the same lazy sweep as the recipient listing.
func (ss *SharingService) ListGranted(ctx context.Context, ownerID uint) ([]GrantSummary, error) {
	var shares []models.SharedCredential
	if err := ss.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, err
	}

	valid := make([]GrantSummary, 0, len(shares))
	var sweep []uint

	for _, share := range shares {
		if isExpired(share.ExpiresAt) {
			sweep = append(sweep, share.ID)
			continue
		}

		summary := GrantSummary{
			ID:               share.ID,
			CredentialID:     share.CredentialID,
			OwnerID:          share.OwnerID,
			SharedWithUserID: share.SharedWithUserID,
			CanEdit:          share.CanEdit,
			CreatedAt:        share.CreatedAt,
			ExpiresAt:        share.ExpiresAt,
		}
		var recipient models.User
		if err := ss.db.WithContext(ctx).First(&recipient, share.SharedWithUserID).Error; err == nil {
			summary.SharedWithEmail = recipient.Email
		}
		valid = append(valid, summary)
	}

	if err := ss.sweepGrants(ctx, sweep); err != nil {
		return nil, err
	}
	return valid, nil
}

// Revoke deletes a grant, but only for its owner. "Not yours" and "does
// not exist" are the same answer.
func (ss *SharingService) Revoke(ctx context.Context, ownerID, shareID uint) error {
	result := ss.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", shareID, ownerID).
		Delete(&models.SharedCredential{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	ss.metrics.IncrementCounter("shares.revoked")
	ss.logger.Info("Share revoked",
		zap.Uint("share_id", shareID),
		zap.Uint("owner_id", ownerID))
	return nil
}

func (ss *SharingService) receivedView(ctx context.Context, share models.SharedCredential, credential models.Credential) ReceivedShare {
	password, err := ss.box.Decrypt(credential.EncryptedPassword)
	if err != nil {
		// Read-path isolation: a corrupted at-rest token degrades to a
		// placeholder instead of failing the row.
		ss.logger.Error("Failed to decrypt shared credential",
			zap.Uint("credential_id", credential.ID),
			zap.Uint("share_id", share.ID),
			zap.Error(err))
		ss.metrics.IncrementCounter("shares.decrypt_failures")
		password = DecryptionFailedPlaceholder
	}

	view := ReceivedShare{
		ID:               share.ID,
		CredentialID:     share.CredentialID,
		OwnerID:          share.OwnerID,
		SharedWithUserID: share.SharedWithUserID,
		CanEdit:          share.CanEdit,
		CreatedAt:        share.CreatedAt,
		ExpiresAt:        share.ExpiresAt,
		Credential: SharedSecret{
			ID:        credential.ID,
			Username:  credential.Username,
			Password:  password,
			Notes:     credential.Notes,
			Tags:      credential.Tags,
			ExpiresAt: credential.ExpiresAt,
		},
	}
	var owner models.User
	if err := ss.db.WithContext(ctx).First(&owner, share.OwnerID).Error; err == nil {
		view.OwnerEmail = owner.Email
	}
	return view
}

func (ss *SharingService) sweepGrants(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ss.db.WithContext(ctx).Delete(&models.SharedCredential{}, ids).Error; err != nil {
		return err
	}
	ss.metrics.IncrementCounter("shares.swept")
	ss.logger.Info("Swept expired shares", zap.Int("count", len(ids)))
	return nil
}
