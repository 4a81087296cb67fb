package service

import (
	"context"
	"database/sql"

	"github.com/gosimple/slug"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
	"qna_catalog/internal/domain/repository"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	txr          TxRunner
}

func NewCategoryService(categoryRepo repository.CategoryRepository, txr TxRunner) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, txr: txr}
}

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (s *CategoryService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*model.Category, error) {
	if req.Name == "" {
		return nil, common.Errorf("category name is required: %w", common.ErrBadRequest)
	}
	category := &model.Category{
		Name: req.Name,
		Slug: slug.Make(req.Name),
	}
	err := s.txr.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.categoryRepo.Create(ctx, tx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *CategoryService) GetCategoryBySlug(ctx context.Context, categorySlug string) (*model.Category, error) {
	return s.categoryRepo.FindBySlug(ctx, categorySlug)
}
