package comments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/pagination"
)

const maxCommentLength = 2000

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes product review operations.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, input CreateCommentInput) (*CommentDTO, error)
	Update(ctx context.Context, authorID, commentID uuid.UUID, input UpdateCommentInput) (*CommentDTO, error)
	Delete(ctx context.Context, authorID, commentID uuid.UUID) error
	ListByProduct(ctx context.Context, input ListCommentsInput) (*CommentListResult, error)
}

type service struct {
	repo     Repository
	products productReader
}

// NewService builds the comments service.
func NewService(repo Repository, products productReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product reader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, input CreateCommentInput) (*CommentDTO, error) {
	if authorID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id and product id required")
	}
	content, err := validContent(input.Content)
	if err != nil {
		return nil, err
	}
	if err := validRating(input.Rating); err != nil {
		return nil, err
	}

	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	comment := &models.Comment{
		ProductID: input.ProductID,
		AuthorID:  authorID,
		Content:   content,
		Rating:    input.Rating,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store comment")
	}
	dto := fromModel(comment)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, authorID, commentID uuid.UUID, input UpdateCommentInput) (*CommentDTO, error) {
	if authorID == uuid.Nil || commentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id and comment id required")
	}

	fields := map[string]interface{}{}
	if input.Content != nil {
		content, err := validContent(*input.Content)
		if err != nil {
			return nil, err
		}
		fields["content"] = content
	}
	if input.Rating != nil {
		if err := validRating(*input.Rating); err != nil {
			return nil, err
		}
		fields["rating"] = *input.Rating
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	affected, err := s.repo.UpdateFields(ctx, commentID, authorID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update comment")
	}
	if affected == 0 {
		return nil, s.resolveScopedMiss(ctx, authorID, commentID)
	}

	updated, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload comment")
	}
	dto := fromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, authorID, commentID uuid.UUID) error {
	if authorID == uuid.Nil || commentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "author id and comment id required")
	}
	affected, err := s.repo.Delete(ctx, commentID, authorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete comment")
	}
	if affected == 0 {
		return s.resolveScopedMiss(ctx, authorID, commentID)
	}
	return nil
}

func (s *service) ListByProduct(ctx context.Context, input ListCommentsInput) (*CommentListResult, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		parsed, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	rows, next, err := s.repo.ListByProduct(ctx, input.ProductID, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}
	summary, err := s.repo.RatingSummary(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating summary")
	}

	result := &CommentListResult{
		Items:   make([]CommentDTO, 0, len(rows)),
		Summary: summary,
	}
	for i := range rows {
		result.Items = append(result.Items, fromModel(&rows[i]))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// resolveScopedMiss distinguishes a review that does not exist from one that
// belongs to another author.
func (s *service) resolveScopedMiss(ctx context.Context, authorID, commentID uuid.UUID) error {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load comment")
	}
	if comment.AuthorID != authorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "comment belongs to another author")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "comment changed concurrently")
}

func validContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "comment content required")
	}
	if len(content) > maxCommentLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "comment content too long")
	}
	return content, nil
}

func validRating(rating int) error {
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": rating})
	}
	return nil
}
