package comments

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
)

// CommentDTO is the transport shape for product reviews.
type CommentDTO struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateCommentInput holds the payload for a new review.
type CreateCommentInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
}

// UpdateCommentInput carries optional review mutations.
type UpdateCommentInput struct {
	Content *string `json:"content,omitempty"`
	Rating  *int    `json:"rating,omitempty"`
}

// ListCommentsInput pages a product's reviews newest-first.
type ListCommentsInput struct {
	ProductID uuid.UUID
	Limit     int
	Cursor    string
}

// RatingSummary aggregates review stats for a product.
type RatingSummary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// CommentListResult wraps one page of reviews plus the product's overall
// rating stats.
type CommentListResult struct {
	Items   []CommentDTO  `json:"items"`
	Summary RatingSummary `json:"summary"`
	Cursor  string        `json:"cursor,omitempty"`
}

func fromModel(c *models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        c.ID,
		ProductID: c.ProductID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		Rating:    c.Rating,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Author != nil {
		dto.AuthorName = c.Author.DisplayName
	}
	return dto
}
