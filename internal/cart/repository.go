package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindLine loads one cart line or gorm.ErrRecordNotFound.
func (r *repository) FindLine(ctx context.Context, profileID, productID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND product_id = ?", profileID, productID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ListByProfile returns every cart line with its product preloaded, oldest first.
func (r *repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("profile_id = ?", profileID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// SetQuantity inserts the line or overwrites its quantity if it already exists.
func (r *repository) SetQuantity(ctx context.Context, profileID, productID uuid.UUID, quantity int) error {
	line := models.CartItem{
		ProfileID: profileID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"quantity": quantity}),
		}).
		Create(&line).Error
}

// DeleteLine removes one line, reporting whether a row existed.
func (r *repository) DeleteLine(ctx context.Context, profileID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("profile_id = ? AND product_id = ?", profileID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear drops every line for the profile.
func (r *repository) Clear(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Delete(&models.CartItem{}).Error
}
