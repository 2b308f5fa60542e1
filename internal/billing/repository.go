package billing

import (
	"context"
	"errors"

	"github.com/builtbyap/socrani-backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository is the record-store surface the billing code consumes.
// Kept narrow so reconciler and gate tests can inject fakes.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateByEmail applies a column patch to the row for email in a single
	// UPDATE statement. Concurrent events for the same email race at the
	// store; a one-statement write avoids read-modify-write lost updates.
	UpdateByEmail(ctx context.Context, email string, patch map[string]interface{}) error
}

type gormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) UpdateByEmail(ctx context.Context, email string, patch map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
