package comments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for product reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Comment, *pagination.Cursor, error)
	RatingSummary(ctx context.Context, productID uuid.UUID) (RatingSummary, error)
	UpdateFields(ctx context.Context, commentID, authorID uuid.UUID, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, commentID, authorID uuid.UUID) (int64, error)
}

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

func (r *repository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Comment, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Preload("Author").
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit))
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Comment
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	trimmed, hasMore := pagination.TrimPage(rows, limit)
	if !hasMore {
		return trimmed, nil, nil
	}
	last := trimmed[len(trimmed)-1]
	return trimmed, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repository) RatingSummary(ctx context.Context, productID uuid.UUID) (RatingSummary, error) {
	var summary RatingSummary
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ?", productID).
		Scan(&summary).Error
	return summary, err
}

// UpdateFields mutates a review scoped to its author. Zero rows means the
// review is missing or owned by someone else.
func (r *repository) UpdateFields(ctx context.Context, commentID, authorID uuid.UUID, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ? AND author_id = ?", commentID, authorID).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, commentID, authorID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", commentID, authorID).
		Delete(&models.Comment{})
	return result.RowsAffected, result.Error
}
