// Package accounts keeps the local user table in step with the identity provider.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/identity"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

// Provider is the part of the identity provider API the service needs.
type Provider interface {
	GetUser(ctx context.Context, externalID string) (*identity.UserData, error)
	UpdateUserMetadata(ctx context.Context, externalID string, meta identity.PublicMetadata) error
}

type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	provider Provider
	log      *logger.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, users repository.UserRepository, provider Provider, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		users:    users,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// Created inserts the subject, or refreshes its profile when a duplicate delivery
// finds it already present.
func (s *Service) Created(ctx context.Context, p identity.Profile) (*models.User, error) {
	user := profileToUser(p)
	user.Role = models.ROLE_USER
	if err := s.upsert(ctx, user); err != nil {
		return nil, err
	}
	if err := s.pushMetadata(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

// Updated rewrites the profile of an existing subject. A missing row is reported as
// NotFound; the provider believes the user exists and we do not.
func (s *Service) Updated(ctx context.Context, p identity.Profile, role string) (*models.User, error) {
	tx, err := database.Begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	users := s.users.WithTx(tx.DB)
	existing, err := users.GetByExternalID(p.ExternalID)
	if err != nil {
		return nil, apperror.TransactionAborted("load user", database.Classify(err, "user", p.ExternalID))
	}

	updates := map[string]interface{}{
		"email":     p.Email,
		"name":      p.Name,
		"image_url": p.ImageURL,
	}
	if role != "" {
		if models.IsValidRole(role) {
			updates["role"] = role
		} else {
			s.log.Warn("ignoring unknown role from identity provider", "external_id", p.ExternalID, "role", role)
		}
	}
	if err := users.UpdateProfile(existing.ID, updates); err != nil {
		return nil, apperror.TransactionAborted("update user", err)
	}
	user, err := users.GetByID(existing.ID)
	if err != nil {
		return nil, apperror.TransactionAborted("reload user", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.pushMetadata(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

// Deleted soft-deletes and redacts the subject. It reports false when there was
// nothing to delete.
func (s *Service) Deleted(ctx context.Context, externalID string) (bool, error) {
	tx, err := database.Begin(ctx, s.db)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	users := s.users.WithTx(tx.DB)
	existing, err := users.GetByExternalID(externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.TransactionAborted("load user", err)
	}
	if err := users.Redact(existing.ID, s.now()); err != nil {
		return false, apperror.TransactionAborted("redact user", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// SyncFromProvider pulls the subject from the provider API, upserts it and writes the
// local id back. Used when a signed-in user has no local row yet.
func (s *Service) SyncFromProvider(ctx context.Context, externalID string) (*models.User, error) {
	data, err := s.provider.GetUser(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetch identity user: %w", err)
	}
	p, err := data.Profile()
	if err != nil {
		return nil, err
	}

	user := profileToUser(p)
	user.Role = models.ROLE_USER
	if models.IsValidRole(data.PublicMetadata.Role) {
		user.Role = data.PublicMetadata.Role
	}
	if err := s.upsert(ctx, user); err != nil {
		return nil, err
	}
	if err := s.pushMetadata(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

func (s *Service) upsert(ctx context.Context, user *models.User) error {
	tx, err := database.Begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.users.WithTx(tx.DB).UpsertByExternalID(user); err != nil {
		return apperror.TransactionAborted("upsert user", database.Classify(err, "user", user.ExternalUserID))
	}
	return tx.Commit()
}

func (s *Service) pushMetadata(ctx context.Context, user *models.User) error {
	err := s.provider.UpdateUserMetadata(ctx, user.ExternalUserID, identity.PublicMetadata{
		DBID: user.ID,
		Role: user.Role,
	})
	if err != nil {
		s.log.Error("identity metadata sync failed after local write", "user_id", user.ID, "external_id", user.ExternalUserID, "error", err)
		return fmt.Errorf("sync identity metadata: %w", err)
	}
	return nil
}

func profileToUser(p identity.Profile) *models.User {
	return &models.User{
		ExternalUserID: p.ExternalID,
		Email:          p.Email,
		Name:           p.Name,
		ImageURL:       p.ImageURL,
	}
}
