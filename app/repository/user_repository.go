package repository

import (
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByExternalID retrieves a live user by the identity provider's subject id
func (r *userRepository) GetByExternalID(externalID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("external_user_id = ?", externalID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByExternalID inserts the user or refreshes the provider-owned profile columns of
// the existing row. The role of an existing row is left alone.
func (r *userRepository) UpsertByExternalID(user *models.User) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"name",
			"image_url",
			"updated_at",
		}),
	}).Create(user).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert. The hook assigned a fresh uuid that the
	// database discarded on conflict, so load into a clean value.
	var stored models.User
	if err := r.db.Where("external_user_id = ?", user.ExternalUserID).First(&stored).Error; err != nil {
		return err
	}
	*user = stored
	return nil
}

// UpdateProfile writes the given columns on a live user
func (r *userRepository) UpdateProfile(id string, updates map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

// Redact soft-deletes the user and wipes personal data
func (r *userRepository) Redact(id string, now time.Time) error {
	return r.db.Unscoped().Model(&models.User{}).Where("id = ?", id).Updates(models.RedactionUpdates(id, now)).Error
}

// Count returns the number of live users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
