package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/db/models"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
)

const snapshotQueueSize = 256

// SnapshotInput is a credential's state before a mutation: the triplet the
// ledger preserves. The password is the at-rest ciphertext as stored; the
// ledger never sees plaintext.
type SnapshotInput struct {
	EncryptedPassword string
	Notes             string
	Tags              string
}

// VersionService is the append-only history ledger for credentials. Writes
// arrive through SubmitSnapshot, a fire-and-forget queue drained by a
// single worker goroutine: a credential update never waits on its snapshot,
// and a snapshot failure is logged and counted but never surfaced to the
// updating caller.
type VersionService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.MetricsCollector

	jobs      chan snapshotJob
	done      chan struct{}
	closeOnce sync.Once
}

type snapshotJob struct {
	credentialID uint
	state        SnapshotInput
}

func NewVersionService(db *gorm.DB, logger *zap.Logger, metricsCollector *metrics.MetricsCollector) *VersionService {
	vs := &VersionService{
		db:      db,
		logger:  logger.With(zap.String("service", "version_service")),
		metrics: metricsCollector,
		jobs:    make(chan snapshotJob, snapshotQueueSize),
		done:    make(chan struct{}),
	}

	go vs.runSnapshotWorker()

	return vs
}

func (vs *VersionService) runSnapshotWorker() {
	defer close(vs.done)
	for job := range vs.jobs {
		if _, err := vs.Snapshot(context.Background(), job.credentialID, job.state); err != nil {
			vs.logger.Error("Failed to persist credential snapshot",
				zap.Uint("credential_id", job.credentialID),
				zap.Error(err))
			vs.metrics.IncrementCounter("versions.snapshot_failures")
			continue
		}
		vs.metrics.IncrementCounter("versions.snapshots_written")
	}
}

// SubmitSnapshot queues a pre-mutation snapshot without blocking the
// caller. When the queue is saturated the snapshot is dropped: history is
// advisory and must never stall or fail a credential update.
func (vs *VersionService) SubmitSnapshot(credentialID uint, state SnapshotInput) {
	select {
	case vs.jobs <- snapshotJob{credentialID: credentialID, state: state}:
	default:
		vs.logger.Warn("Snapshot queue full, dropping snapshot",
			zap.Uint("credential_id", credentialID))
		vs.metrics.IncrementCounter("versions.snapshots_dropped")
	}
}

// Close stops accepting snapshots and waits for the worker to drain the
// queue. Safe to call more than once.
func (vs *VersionService) Close() {
	vs.closeOnce.Do(func() {
		close(vs.jobs)
	})
	<-vs.done
}

// Snapshot persists one version record, numbered one past the current
// maximum for the credential. Two concurrent updates to the same
// credential can race on the read-then-write and produce a duplicate
// number; that is accepted, the ledger is advisory.
func (vs *VersionService) Snapshot(ctx context.Context, credentialID uint, state SnapshotInput) (*models.CredentialVersion, error) {
	var latest models.CredentialVersion
	nextVersion := 1
	err := vs.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		Order("version DESC").
		First(&latest).Error
	switch {
	case err == nil:
		nextVersion = latest.Version + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First snapshot for this credential.
	default:
		return nil, fmt.Errorf("read latest version: %w", err)
	}

	version := &models.CredentialVersion{
		CredentialID:      credentialID,
		Version:           nextVersion,
		EncryptedPassword: state.EncryptedPassword,
		Notes:             state.Notes,
		Tags:              state.Tags,
	}
	if err := vs.db.WithContext(ctx).Create(version).Error; err != nil {
		return nil, fmt.Errorf("create version %d: %w", nextVersion, err)
	}

	vs.logger.Info("Credential snapshot created",
		zap.Uint("credential_id", credentialID),
		zap.Int("version", nextVersion))
	return version, nil
}

// ListVersions returns every snapshot for a credential, newest version
// first. The caller must own the credential; otherwise ErrNotFound.
func (vs *VersionService) ListVersions(ctx context.Context, userID, credentialID uint) ([]models.CredentialVersion, error) {
	if err := vs.requireOwnership(ctx, userID, credentialID); err != nil {
		return nil, err
	}

	var versions []models.CredentialVersion
	if err := vs.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		Order("version DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// GetVersion returns one snapshot by its per-credential version number.
func (vs *VersionService) GetVersion(ctx context.Context, userID, credentialID uint, versionNumber int) (*models.CredentialVersion, error) {
	if err := vs.requireOwnership(ctx, userID, credentialID); err != nil {
		return nil, err
	}

	var version models.CredentialVersion
	err := vs.db.WithContext(ctx).
		Where("credential_id = ? AND version = ?", credentialID, versionNumber).
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// PurgeAll deletes every snapshot for a credential. Used only by the
// credential delete path.
func (vs *VersionService) PurgeAll(ctx context.Context, credentialID uint) error {
	return vs.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		Delete(&models.CredentialVersion{}).Error
}

func (vs *VersionService) requireOwnership(ctx context.Context, userID, credentialID uint) error {
	var credential models.Credential
	err := vs.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", credentialID, userID).
		First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
