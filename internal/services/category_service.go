package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

type CategoryService struct {
	repo repository.CategoryRepository
	log  *zap.Logger
}

func NewCategoryService(repo repository.CategoryRepository, log *zap.Logger) *CategoryService {
	return &CategoryService{repo: repo, log: log}
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Category{}
	}
	return list, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, slugValue string) (*domain.Category, error) {
	c, err := s.repo.FindBySlug(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NewNotFound("category not found")
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name, sl, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, sl, ""); err != nil {
		return nil, err
	}

	c := &domain.Category{Name: name, Slug: sl, Description: in.Description}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.String("category_id", c.ID), zap.String("slug", c.Slug))
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, patch CategoryPatch) (*domain.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NewNotFound("category not found")
	}

	if patch.Name != nil {
		name, sl, err := categoryName(*patch.Name)
		if err != nil {
			return nil, err
		}
		if err := s.ensureSlugFree(ctx, sl, c.ID); err != nil {
			return nil, err
		}
		c.Name, c.Slug = name, sl
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NewNotFound("category not found")
	}
	s.log.Info("category deleted", zap.String("category_id", id))
	return nil
}

func categoryName(raw string) (string, string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 2 || n > 80 {
		return "", "", domain.NewBadRequest("name must be 2 to 80 characters")
	}
	sl := slug.Make(name)
	if sl == "" {
		return "", "", domain.NewBadRequest("name must contain letters or digits")
	}
	return name, sl, nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, sl, selfID string) error {
	existing, err := s.repo.FindBySlug(ctx, sl)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return domain.NewConflict("category already exists")
	}
	return nil
}
